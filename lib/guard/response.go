// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// DefaultRetryAfter is the Retry-After sent with retryable rejections.
const DefaultRetryAfter = time.Second

// errorBody is the JSON body of a rejection. It names the class only;
// details stay in the server's logs.
type errorBody struct {
	Error string `json:"error"`
}

// WriteRejection writes rejection as the response. Retryable
// rejections carry Retry-After in whole seconds, at least 1.
func WriteRejection(writer http.ResponseWriter, rejection Rejection, retryAfter time.Duration) {
	header := writer.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Cache-Control", "no-store")
	if rejection.Retryable {
		seconds := int64(retryAfter / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		header.Set("Retry-After", strconv.FormatInt(seconds, 10))
	}
	writer.WriteHeader(rejection.Status)
	json.NewEncoder(writer).Encode(errorBody{Error: rejection.Name})
}
