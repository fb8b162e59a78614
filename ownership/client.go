// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ownership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/thor"
)

const (
	// DefaultDialTimeout bounds establishing a connection to the oracle.
	DefaultDialTimeout = 5 * time.Second
	// DefaultQueryTimeout bounds a whole query.
	DefaultQueryTimeout = 10 * time.Second
)

// OracleError is an error reported by the oracle service itself.
type OracleError struct {
	Code string
	Msg  string
}

func (e *OracleError) Error() string {
	if e.Code == "" {
		return "oracle: " + e.Msg
	}
	return fmt.Sprintf("oracle: %s (%s)", e.Msg, e.Code)
}

type tokensRequest struct {
	Owner thor.Address `json:"owner"`
}

type tokensResponse struct {
	Tokens []string `json:"tokens"`
	Error  string   `json:"error,omitempty"`
	Code   string   `json:"code,omitempty"`
}

// Client queries a token ownership service over HTTP. The service accepts
// POST <base>/tokens with {"owner": "0x..."} and answers {"tokens": [...]}.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	queryTimeout time.Duration
}

var _ Oracle = (*Client)(nil)

// NewClient creates a client for the service at baseURL. A zero timeout
// falls back to DefaultQueryTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout: DefaultDialTimeout,
				}).DialContext,
			},
		},
		queryTimeout: timeout,
	}
}

// TokensOwnedBy implements Oracle.
func (c *Client) TokensOwnedBy(ctx context.Context, owner thor.Address) ([]string, error) {
	var resp tokensResponse
	if err := c.doRequest(ctx, "/tokens", &tokensRequest{owner}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &OracleError{Code: resp.Code, Msg: resp.Error}
	}
	return resp.Tokens, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, reqBody, result any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "query ownership oracle")
	}
	defer resp.Body.Close()

	// drain fully so the connection can be reused
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read oracle response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp tokensResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return &OracleError{Code: errResp.Code, Msg: errResp.Error}
		}
		return errors.Errorf("oracle http error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return errors.Wrap(json.Unmarshal(data, result), "decode oracle response")
}
