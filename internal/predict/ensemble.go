package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Node is one vertex of a regression tree in the dump format gradient
// boosting toolkits emit: interior nodes carry a split feature and threshold
// with yes/no/missing branch ids, leaves carry the additive score.
type Node struct {
	NodeID         int      `json:"nodeid"`
	Depth          int      `json:"depth,omitempty"`
	Split          string   `json:"split,omitempty"`
	SplitCondition float64  `json:"split_condition,omitempty"`
	Yes            int      `json:"yes,omitempty"`
	No             int      `json:"no,omitempty"`
	Missing        int      `json:"missing,omitempty"`
	Leaf           *float64 `json:"leaf,omitempty"`
	Children       []Node   `json:"children,omitempty"`
}

type modelDocument struct {
	ModelName    string   `json:"model_name"`
	ModelVersion string   `json:"model_version"`
	BaseScore    float64  `json:"base_score"`
	Features     []string `json:"features"`
	Trees        []Node   `json:"trees"`
}

// Ensemble is an additive regression forest: prediction is base_score plus
// the sum of one leaf value per tree. The structure is validated when loaded
// so scoring cannot fail mid-request.
type Ensemble struct {
	name      string
	version   string
	baseScore float64
	features  []string
	featIndex map[string]int
	trees     []Node
}

// LoadEnsembleFile reads and validates a model artifact from disk.
func LoadEnsembleFile(path string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	e, err := ParseEnsemble(data)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if e.name == "" {
		e.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return e, nil
}

// ParseEnsemble decodes and validates a model document.
func ParseEnsemble(data []byte) (*Ensemble, error) {
	var doc modelDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode model document: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("model lists no features")
	}
	if len(doc.Trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}

	index := make(map[string]int, len(doc.Features))
	for i, name := range doc.Features {
		if name == "" {
			return nil, fmt.Errorf("feature %d has an empty name", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate feature %q", name)
		}
		index[name] = i
	}

	e := &Ensemble{
		name:      doc.ModelName,
		version:   doc.ModelVersion,
		baseScore: doc.BaseScore,
		features:  doc.Features,
		featIndex: index,
		trees:     doc.Trees,
	}
	for i := range e.trees {
		if err := e.validateNode(&e.trees[i]); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return e, nil
}

func (e *Ensemble) validateNode(n *Node) error {
	if n.Leaf != nil {
		if len(n.Children) != 0 {
			return fmt.Errorf("node %d: leaf with children", n.NodeID)
		}
		return nil
	}
	if _, ok := e.featIndex[n.Split]; !ok {
		return fmt.Errorf("node %d: split feature %q not in feature list", n.NodeID, n.Split)
	}
	for _, id := range []int{n.Yes, n.No, n.Missing} {
		if childByID(n, id) == nil {
			return fmt.Errorf("node %d: branch target %d not among children", n.NodeID, id)
		}
	}
	for i := range n.Children {
		if err := e.validateNode(&n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

func childByID(n *Node, id int) *Node {
	for i := range n.Children {
		if n.Children[i].NodeID == id {
			return &n.Children[i]
		}
	}
	return nil
}

// Predict sums the forest for one feature vector. Values below a node's
// threshold take the yes branch, NaN takes the missing branch.
func (e *Ensemble) Predict(features []float64) (float64, error) {
	if len(features) != len(e.features) {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(features), len(e.features))
	}
	score := e.baseScore
	for i := range e.trees {
		score += e.scoreTree(&e.trees[i], features)
	}
	return score, nil
}

func (e *Ensemble) scoreTree(root *Node, features []float64) float64 {
	node := root
	for node.Leaf == nil {
		v := features[e.featIndex[node.Split]]
		next := node.No
		if math.IsNaN(v) {
			next = node.Missing
		} else if v < node.SplitCondition {
			next = node.Yes
		}
		node = childByID(node, next)
	}
	return *node.Leaf
}

// Features returns the model's input features in scoring order.
func (e *Ensemble) Features() []string {
	out := make([]string, len(e.features))
	copy(out, e.features)
	return out
}

// Info describes the loaded model.
func (e *Ensemble) Info() Info {
	name := e.name
	if name == "" {
		name = "fouling-ensemble"
	}
	return Info{
		Name:     name,
		Version:  e.version,
		Kind:     "ensemble",
		Features: e.Features(),
		Trees:    len(e.trees),
	}
}

// FeatureWeight reports how often a feature was chosen as a split, that
// count as a fraction of all splits, and the feature's 1-based rank.
type FeatureWeight struct {
	Feature    string  `json:"feature"`
	Splits     int     `json:"splits"`
	Importance float64 `json:"importance"`
	Rank       int     `json:"rank"`
}

// Importance computes split-count feature importance over the whole forest.
// Every model feature appears, ordered by split count with name as the
// tiebreak.
func (e *Ensemble) Importance() []FeatureWeight {
	counts := make(map[string]int, len(e.features))
	total := 0
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Leaf != nil {
			return
		}
		counts[n.Split]++
		total++
		for i := range n.Children {
			walk(&n.Children[i])
		}
	}
	for i := range e.trees {
		walk(&e.trees[i])
	}

	out := make([]FeatureWeight, 0, len(e.features))
	for _, name := range e.features {
		w := FeatureWeight{Feature: name, Splits: counts[name]}
		if total > 0 {
			w.Importance = float64(w.Splits) / float64(total)
		}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Splits != out[j].Splits {
			return out[i].Splits > out[j].Splits
		}
		return out[i].Feature < out[j].Feature
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
