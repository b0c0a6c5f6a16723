// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPingURL = "https://hc-ping.com"
	DefaultAPIURL  = "https://healthchecks.io/api/v3"
)

var (
	ErrStatus = errors.New("status code is invalid")
)

// Status is the state of a monitored job reported to healthchecks.io
type Status int

const (
	Start Status = iota
	Success
	Fail
)

func (status Status) String() string {
	switch status {
	case Start:
		return "start"
	case Fail:
		return "fail"
	default:
		return "success"
	}
}

func (status Status) suffix() string {
	switch status {
	case Start:
		return "/start"
	case Fail:
		return "/fail"
	default:
		return ""
	}
}

type createReq struct {
	Name        string `json:"name"`
	Description string `json:"desc,omitempty"`
	Grace       int    `json:"grace"`
	Schedule    string `json:"schedule"`
	Slug        string `json:"slug"`
	Tags        string `json:"tags"`
	Timezone    string `json:"tz"`
}

type createResp struct {
	PingURL string `json:"ping_url"`
}

// Client talks to healthchecks.io
type Client struct {
	HTTP    *resty.Client
	PingURL string
	APIURL  string
	APIKey  string
}

// New creates a client; apiKey is only needed to create checks
func New(apiKey string) *Client {
	return &Client{
		HTTP:    resty.New(),
		PingURL: DefaultPingURL,
		APIURL:  DefaultAPIURL,
		APIKey:  apiKey,
	}
}

// Ping reports the state of a run. body is attached to the ping and shown
// in the healthchecks.io event log.
func (client *Client) Ping(ctx context.Context, checkID string, status Status, body string) error {
	if checkID == "" {
		return nil
	}

	url := fmt.Sprintf("%s/%s%s", strings.TrimRight(client.PingURL, "/"), checkID, status.suffix())

	resp, err := client.HTTP.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(body).
		Post(url)
	if err != nil {
		log.Warn().Err(err).Str("CheckID", checkID).Stringer("Status", status).Msg("healthcheck ping failed")
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}

// Create a new healthchecks.io check and return its id
func (client *Client) Create(ctx context.Context, name string, slug string, tags []string, schedule string) (string, error) {
	command := createReq{
		Name:     name,
		Slug:     slug,
		Tags:     strings.Join(tags, " "),
		Grace:    3600,
		Schedule: schedule,
		Timezone: "America/New_York",
	}

	result := createResp{}

	resp, err := client.HTTP.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", client.APIKey).
		SetBody(command).
		SetResult(&result).
		Post(fmt.Sprintf("%s/checks/", strings.TrimRight(client.APIURL, "/")))

	if err != nil {
		return "", err
	}

	if resp.StatusCode() > 201 {
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	checkID := strings.Split(result.PingURL, "/")
	healthCheckID := checkID[len(checkID)-1]

	return healthCheckID, nil
}
