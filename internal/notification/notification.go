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
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/statledger/statledger/config"
	"github.com/statledger/statledger/internal/request"
)

// webhookPayload is the body posted to the configured webhook when an upload
// job fails.
type webhookPayload struct {
	JobID    string    `json:"job_id,omitempty"`
	FileName string    `json:"file_name,omitempty"`
	Error    string    `json:"error"`
	Time     time.Time `json:"time"`
}

// WebhookNotification posts an ingestion failure to the configured webhook.
func WebhookNotification(jobID, fileName string, cause error) {
	conf, err := config.Fetch()
	if err != nil {
		log.Println(err)
		return
	}
	if conf.Notification.Webhook.Url == "" {
		return
	}

	payload, err := request.ToJsonReq(webhookPayload{
		JobID:    jobID,
		FileName: fileName,
		Error:    cause.Error(),
		Time:     time.Now(),
	})
	if err != nil {
		log.Println(err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, conf.Notification.Webhook.Url, payload)
	if err != nil {
		log.Println(err)
		return
	}
	for header, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(header, value)
	}

	var response map[string]interface{}
	if _, err := request.Call(req, &response); err != nil {
		log.Println(err)
	}
}

// NotifyError logs the error and posts the webhook notification without
// blocking the worker.
func NotifyError(jobID, fileName string, cause error) {
	go func() {
		logrus.Error(cause)
		WebhookNotification(jobID, fileName, cause)
	}()
}
