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

package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statledger/statledger/config"
)

func TestWebhookNotification(t *testing.T) {
	received := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cnf := &config.Configuration{DataSource: config.DataSourceConfig{Dns: "postgres://localhost"}, Redis: config.RedisConfig{Dns: "localhost:6379"}}
	cnf.Notification.Webhook.Url = server.URL
	config.MockConfig(cnf)

	WebhookNotification("job_1", "jan.csv", errors.New("statement file has no header row"))

	payload := <-received
	assert.Equal(t, "job_1", payload.JobID)
	assert.Equal(t, "jan.csv", payload.FileName)
	assert.Equal(t, "statement file has no header row", payload.Error)
}

func TestWebhookNotificationDisabled(t *testing.T) {
	cnf := &config.Configuration{DataSource: config.DataSourceConfig{Dns: "postgres://localhost"}, Redis: config.RedisConfig{Dns: "localhost:6379"}}
	config.MockConfig(cnf)

	// No webhook configured: must be a silent no-op.
	WebhookNotification("job_1", "jan.csv", errors.New("boom"))
}
