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
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-assetholder/channel"
	"perun.network/perun-assetholder/event"
	"perun.network/perun-assetholder/store"
	"perun.network/perun-assetholder/wire"
)

const (
	pathInfo     = "/info"
	pathHoldings = "/holdings/{fundingID}"
	pathChannel  = "/channels/{channelID}"
	pathFunding  = "/channels/{channelID}/funding/{participant}"
	pathEvents   = "/events"
	pathWithdraw = "/withdraw"

	paramFrom = "from"
)

// AssetHolder is the ledger served by the REST API.
type AssetHolder interface {
	Adjudicator() common.Address
	Holdings(fid wire.FundingID) (*big.Int, error)
	Outcome(cid pchannel.ID) (*store.Outcome, bool, error)
	Events() []event.Event
	Withdraw(ctx context.Context, auth wire.Authorization, sig pwallet.Sig) error
}

// AssetHolderEndpoints registers the query and withdrawal endpoints of
// holder.
func AssetHolderEndpoints(holder AssetHolder, logger log.Logger) RegistrarFunc {
	return func(r *mux.Router) {
		r.HandleFunc(pathInfo, getInfo(holder, logger)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathHoldings, getHoldings(holder, logger)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathChannel, getChannel(holder, logger)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathFunding, getFunding(holder, logger)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathEvents, getEvents(holder, logger)).Methods(http.MethodGet, http.MethodOptions)

		// relay a signed withdrawal
		r.HandleFunc(pathWithdraw, postWithdraw(holder, logger)).Methods(http.MethodPost, http.MethodOptions)
	}
}

func getInfo(holder AssetHolder, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, InfoResponse{Adjudicator: holder.Adjudicator()})
	}
}

func getHoldings(holder AssetHolder, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid, err := wire.ParseFundingID(mux.Vars(r)["fundingID"])
		if err != nil {
			invalidParam(w, logger, "fundingID", err)
			return
		}
		amount, err := holder.Holdings(fid)
		if err != nil {
			writeError(w, logger, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, HoldingResponse{FundingID: common.Hash(fid), Amount: amount})
	}
}

func getChannel(holder AssetHolder, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cid, err := wire.ParseChannelID(mux.Vars(r)["channelID"])
		if err != nil {
			invalidParam(w, logger, "channelID", err)
			return
		}
		o, settled, err := holder.Outcome(cid)
		if err != nil {
			writeError(w, logger, http.StatusInternalServerError, err)
			return
		}
		resp := ChannelResponse{ChannelID: common.Hash(cid), Settled: settled}
		if settled {
			resp.Outcome = newOutcomeResponse(o)
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

func getFunding(holder AssetHolder, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		cid, err := wire.ParseChannelID(vars["channelID"])
		if err != nil {
			invalidParam(w, logger, "channelID", err)
			return
		}
		part := vars["participant"]
		if !common.IsHexAddress(part) {
			invalidParam(w, logger, "participant", fmt.Errorf("not an address: %s", part))
			return
		}
		addr := common.HexToAddress(part)
		fid := wire.CalcFundingID(cid, addr)
		amount, err := holder.Holdings(fid)
		if err != nil {
			writeError(w, logger, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, FundingResponse{
			ChannelID:   common.Hash(cid),
			Participant: addr,
			FundingID:   common.Hash(fid),
			Amount:      amount,
		})
	}
}

// getEvents lists the journal starting at the optional "from" index. With
// "Accept: application/xdr" every event is written as one line of base64
// encoded XDR.
func getEvents(holder AssetHolder, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := 0
		if s := r.URL.Query().Get(paramFrom); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				invalidParam(w, logger, paramFrom, fmt.Errorf("not a journal index: %s", s))
				return
			}
			from = n
		}
		evs := holder.Events()
		if from > len(evs) {
			from = len(evs)
		}

		if strings.Contains(r.Header.Get(headerAccept), applicationXDR) {
			var sb strings.Builder
			for _, ev := range evs[from:] {
				line, err := event.EncodeBase64(ev)
				if err != nil {
					writeError(w, logger, http.StatusInternalServerError, err)
					return
				}
				sb.WriteString(line)
				sb.WriteByte('\n')
			}
			w.Header().Set(headerContentType, applicationXDR)
			if _, err := w.Write([]byte(sb.String())); err != nil {
				logger.Warnf("Writing events: %v", err)
			}
			return
		}

		resp := make([]EventResponse, 0, len(evs)-from)
		for i, ev := range evs[from:] {
			resp = append(resp, NewEventResponse(from+i, ev))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

func postWithdraw(holder AssetHolder, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WithdrawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, fmt.Errorf("decoding withdrawal request: %w", err))
			return
		}
		auth, err := req.DecodeAuthorization()
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, fmt.Errorf("decoding authorization: %w", err))
			return
		}
		if err := holder.Withdraw(r.Context(), auth, pwallet.Sig(req.Signature)); err != nil {
			writeError(w, logger, withdrawStatus(err), err)
			return
		}
		fid := auth.FundingID()
		amount, err := holder.Holdings(fid)
		if err != nil {
			writeError(w, logger, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, HoldingResponse{FundingID: common.Hash(fid), Amount: amount})
	}
}

func withdrawStatus(err error) int {
	switch {
	case errors.Is(err, channel.ErrOverflow):
		return http.StatusBadRequest
	case errors.Is(err, channel.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, channel.ErrAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, channel.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, log.Default(), http.StatusNotFound, errors.New("404 not found"))
}

func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	w.Header().Set(headerContentType, applicationJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warnf("Failed to encode response data as json: %v", err)
	}
}

func writeError(w http.ResponseWriter, logger log.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Errorf("Serving request: %v", err)
	}
	writeJSON(w, logger, status, ErrorResponse{Message: err.Error()})
}

func invalidParam(w http.ResponseWriter, logger log.Logger, name string, err error) {
	writeError(w, logger, http.StatusBadRequest, fmt.Errorf("invalid parameter %q: %w", name, err))
}
