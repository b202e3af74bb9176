package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// ParseJSONBodyReturn decodes the request body into v, writing an
// invalid-request envelope on failure.
func ParseJSONBodyReturn(w http.ResponseWriter, r *http.Request, v any) error {
	return parseJSONBody(w, r, v, false)
}

// ParseOptionalJSONBody is ParseJSONBodyReturn that treats an empty body as {}
func ParseOptionalJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	return parseJSONBody(w, r, v, true)
}

func parseJSONBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		WriteErrorResponse(w, StatusInvalidRequest, "Invalid JSON body")
		return err
	}
	return nil
}
