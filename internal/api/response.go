package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes caps the size of a decoded request body.
const maxBodyBytes = 1 << 20

// WriteJSON marshals v as JSON and writes it to w with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigStd.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to write JSON response")
	}
}

// DecodeJSON reads the request body into v. An empty body is an error.
func DecodeJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return errors.New("request body is empty")
	}
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// CollectionResponse is a list response.
type CollectionResponse[T any] struct {
	Results []T `json:"results"`
}

// NewCollection wraps items, turning nil into an empty list.
func NewCollection[T any](items []T) CollectionResponse[T] {
	if items == nil {
		items = []T{}
	}
	return CollectionResponse[T]{Results: items}
}
