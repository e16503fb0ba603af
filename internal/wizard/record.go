package wizard

import (
	"errors"
	"net/http"
	"strings"

	apperrors "gmbh-wizard/internal/common/errors"
)

const maxFormMemory = 1 << 20

// Record is the flat key/value view of one submission. Values are opaque
// strings; unknown keys pass through untouched.
type Record map[string]string

// RecordFromRequest collects query parameters and a form-encoded or
// multipart body. Body values win over query values of the same name.
func RecordFromRequest(r *http.Request) (Record, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, apperrors.NewValidationError("malformed form body: " + err.Error())
	}

	rec := make(Record, len(r.Form))
	for key, values := range r.Form {
		if len(values) > 0 {
			rec[key] = values[0]
		}
	}
	return rec, nil
}

func (r Record) Get(key string) string {
	return r[key]
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// With returns a copy of r with key set to value.
func (r Record) With(key, value string) Record {
	out := r.Clone()
	out[key] = value
	return out
}

// Subset returns the given keys that are present in r.
func (r Record) Subset(keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}
