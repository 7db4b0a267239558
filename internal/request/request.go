/*
Copyright 2025 Statledger Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package request

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"
)

// ToJsonReq serializes a payload into a buffer ready to be sent as a JSON
// request body.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(c), nil
}

// Call sends the request with a JSON content type and decodes the JSON
// response body into response when one is expected.
func Call(req *http.Request, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
