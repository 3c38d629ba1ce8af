// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	pchannel "perun.network/go-perun/channel"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-assetholder/channel"
	"perun.network/perun-assetholder/event"
	"perun.network/perun-assetholder/rpc"
	"perun.network/perun-assetholder/wire"
)

const (
	InfoPath     = "api/v1/info"
	HoldingsPath = "api/v1/holdings"
	ChannelsPath = "api/v1/channels"
	EventsPath   = "api/v1/events"
	WithdrawPath = "api/v1/withdraw"

	defaultScheme   = "http://"
	contentType     = "Content-Type"
	accept          = "Accept"
	applicationJSON = "application/json"
	applicationXDR  = "application/xdr"
)

// StatusError is returned for responses with a status other than 200 OK.
// Statuses that correspond to ledger errors unwrap to the ledger's sentinel.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return channel.ErrInvalidSignature
	case http.StatusConflict:
		return channel.ErrAlreadySettled
	case http.StatusUnprocessableEntity:
		return channel.ErrInsufficientFunds
	default:
		return nil
	}
}

// Client talks to the REST API of an asset holder.
type Client struct {
	BaseURL    *url.URL
	HTTPClient http.Client

	infoURL     *url.URL
	holdingsURL *url.URL
	channelsURL *url.URL
	eventsURL   *url.URL
	withdrawURL *url.URL
}

// New returns a client for the server at baseURL. A missing scheme defaults
// to http.
func New(baseURL string) (*Client, error) {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = defaultScheme + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing asset holder base URL (%s): %w", baseURL, err)
	}
	return &Client{
		BaseURL:     u,
		HTTPClient:  http.Client{Timeout: time.Minute},
		infoURL:     u.JoinPath(InfoPath),
		holdingsURL: u.JoinPath(HoldingsPath),
		channelsURL: u.JoinPath(ChannelsPath),
		eventsURL:   u.JoinPath(EventsPath),
		withdrawURL: u.JoinPath(WithdrawPath),
	}, nil
}

// Adjudicator returns the adjudicator identity of the asset holder.
func (c *Client) Adjudicator(ctx context.Context) (common.Address, error) {
	var resp rpc.InfoResponse
	if err := c.get(ctx, c.infoURL, &resp); err != nil {
		return common.Address{}, err
	}
	return resp.Adjudicator, nil
}

// Holdings returns the holdings of fid.
func (c *Client) Holdings(ctx context.Context, fid wire.FundingID) (*big.Int, error) {
	var resp rpc.HoldingResponse
	if err := c.get(ctx, c.holdingsURL.JoinPath(fid.String()), &resp); err != nil {
		return nil, err
	}
	return resp.Amount, nil
}

// Funding returns the holdings of participant in cid.
func (c *Client) Funding(ctx context.Context, cid pchannel.ID, participant common.Address) (*rpc.FundingResponse, error) {
	var resp rpc.FundingResponse
	if err := c.get(ctx, c.channelsURL.JoinPath(hexutil.Encode(cid[:]), "funding", participant.Hex()), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Channel returns the settlement state of cid.
func (c *Client) Channel(ctx context.Context, cid pchannel.ID) (*rpc.ChannelResponse, error) {
	var resp rpc.ChannelResponse
	if err := c.get(ctx, c.channelsURL.JoinPath(hexutil.Encode(cid[:])), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns the journal starting at index from.
func (c *Client) Events(ctx context.Context, from int) ([]rpc.EventResponse, error) {
	var resp []rpc.EventResponse
	if err := c.get(ctx, c.eventsFrom(from), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// EventsXDR returns the journal starting at index from, transferred in its
// XDR encoding.
func (c *Client) EventsXDR(ctx context.Context, from int) ([]event.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eventsFrom(from).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building events request: %w", err)
	}
	req.Header.Set(accept, applicationXDR)
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var evs []event.Event
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		ev, err := event.DecodeBase64(scanner.Text())
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, scanner.Err()
}

// Withdraw relays a signed authorization and returns the remaining holdings.
func (c *Client) Withdraw(ctx context.Context, auth wire.Authorization, sig pwallet.Sig) (*big.Int, error) {
	wr, err := rpc.NewEncodedWithdrawRequest(auth, sig)
	if err != nil {
		return nil, fmt.Errorf("encoding authorization: %w", err)
	}
	body, err := json.Marshal(wr)
	if err != nil {
		return nil, fmt.Errorf("encoding withdrawal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withdrawURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building withdraw request: %w", err)
	}
	req.Header.Set(contentType, applicationJSON)
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var resp rpc.HoldingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding withdraw response: %w", err)
	}
	return resp.Amount, nil
}

func (c *Client) eventsFrom(from int) *url.URL {
	u := *c.eventsURL
	q := u.Query()
	q.Set("from", strconv.Itoa(from))
	u.RawQuery = q.Encode()
	return &u
}

func (c *Client) get(ctx context.Context, u *url.URL, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", u.Path, err)
	}
	req.Header.Set(accept, applicationJSON)
	data, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response of %s: %w", u.Path, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	response, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", req.URL.Path, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response of %s: %w", req.URL.Path, err)
	}
	if response.StatusCode != http.StatusOK {
		var errResp rpc.ErrorResponse
		if err := json.Unmarshal(data, &errResp); err != nil || errResp.Message == "" {
			errResp.Message = http.StatusText(response.StatusCode)
		}
		return nil, &StatusError{Code: response.StatusCode, Message: errResp.Message}
	}
	return data, nil
}

var _ Sender = (*Client)(nil)

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
