package responseformat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgPack = "application/x-msgpack"
)

// Formatter encodes API responses as JSON or MessagePack. A body is
// encoded in full before anything is written, so an encoding failure
// becomes a 500 rather than a truncated 200.
type Formatter struct {
	// Headers set on every response
	Headers map[string]string
}

func NewFormatter() *Formatter {
	return &Formatter{
		Headers: map[string]string{"Access-Control-Allow-Origin": "*"},
	}
}

// Negotiate returns the content type for a request: MessagePack when
// format=msgpack is given or the Accept header asks for it, JSON otherwise.
func Negotiate(req *http.Request) string {
	switch req.URL.Query().Get("format") {
	case "msgpack":
		return ContentTypeMsgPack
	case "json":
		return ContentTypeJSON
	}
	if strings.Contains(req.Header.Get("Accept"), ContentTypeMsgPack) {
		return ContentTypeMsgPack
	}
	return ContentTypeJSON
}

// WriteResponse writes data with status 200
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	return f.WriteStatus(w, req, http.StatusOK, data, headers)
}

// WriteStatus encodes data in the negotiated format and writes it with the
// given status.
func (f *Formatter) WriteStatus(w http.ResponseWriter, req *http.Request, status int, data any, headers map[string]string) error {
	for k, v := range f.Headers {
		w.Header().Set(k, v)
	}
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	contentType := Negotiate(req)
	body, err := Encode(contentType, data)
	if err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// Encode encodes data as contentType. MessagePack uses the json struct
// tags so both formats carry the same field names.
func Encode(contentType string, data any) ([]byte, error) {
	var buf bytes.Buffer
	switch contentType {
	case ContentTypeMsgPack:
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(data); err != nil {
			return nil, err
		}
	default:
		if err := json.NewEncoder(&buf).Encode(data); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
