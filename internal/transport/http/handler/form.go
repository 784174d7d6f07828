package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dmca-notices/internal/domain"
)

const maxFormBytes = 1 << 20

// decodeForm reads a flat form from a JSON object or a urlencoded/multipart
// body. JSON scalars are kept as their string form; an empty body yields an
// empty form.
func decodeForm(w http.ResponseWriter, r *http.Request) (domain.Draft, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("invalid form body: %w", domain.ErrBadRequest)
		}
		form := make(domain.Draft, len(r.PostForm))
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				form[k] = vs[0]
			}
		}
		return form, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Draft{}, nil
		}
		return nil, fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	form := make(domain.Draft, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			form[k] = val
		case json.Number:
			form[k] = val.String()
		case bool:
			form[k] = fmt.Sprint(val)
		default:
			return nil, fmt.Errorf("field %s must be a scalar: %w", k, domain.ErrBadRequest)
		}
	}
	return form, nil
}

// checked reports whether a checkbox field was submitted as on. An absent
// field is unchecked; JSON clients may also send false or 0.
func checked(form domain.Draft, key string) bool {
	v, ok := form[key]
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "off":
		return false
	}
	return true
}
