// Package responseformat encodes HTTP responses as JSON or MessagePack.
//
// Clients select the encoding with a format=msgpack query parameter; JSON
// is the default. MessagePack output reuses the json struct tags so both
// encodings expose identical field names.
package responseformat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// WriteResponse writes the response in the format the request asked for.
// JSON is the default; MessagePack is used when format=msgpack is specified.
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	return f.write(w, req, http.StatusOK, data, headers)
}

// WriteStatus is WriteResponse with an explicit HTTP status code.
func (f *Formatter) WriteStatus(w http.ResponseWriter, req *http.Request, status int, data any) error {
	return f.write(w, req, status, data, nil)
}

// WriteError writes the standard error envelope with the given status.
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, message string) {
	_ = f.write(w, req, status, map[string]string{"error": message}, nil)
}

// WriteCachedJSON serves a pre-encoded JSON document wrapped with the time it
// was fetched. Integration snapshots are cached verbatim, so the MessagePack
// path has to decode the document before re-encoding it.
func (f *Formatter) WriteCachedJSON(w http.ResponseWriter, req *http.Request, doc []byte, fetchedAt time.Time) error {
	setCORS(w)

	stamp := fetchedAt.UTC().Format(time.RFC3339)
	if req.URL.Query().Get("format") == "msgpack" {
		var data any
		if err := json.Unmarshal(doc, &data); err != nil {
			return err
		}
		return f.writeMsgPack(w, http.StatusOK, map[string]any{
			"fetched_at": stamp,
			"data":       data,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"fetched_at": %q, "data": `, stamp); err != nil {
		return err
	}
	if _, err := w.Write(doc); err != nil {
		return err
	}
	_, err := w.Write([]byte("}"))
	return err
}

func (f *Formatter) write(w http.ResponseWriter, req *http.Request, status int, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	setCORS(w)

	if req.URL.Query().Get("format") == "msgpack" {
		return f.writeMsgPack(w, status, data)
	}
	return f.writeJSON(w, status, data)
}

// setCORS defaults the allow-origin header to * unless middleware already
// resolved a specific origin for the request.
func setCORS(w http.ResponseWriter) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
}

func (f *Formatter) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/x-msgpack")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
