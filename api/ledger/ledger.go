// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/api/utils"
	"github.com/vechain/sbtvote/logdb"
	"github.com/vechain/sbtvote/thor"
	"github.com/vechain/sbtvote/voting"
)

type Ledger struct {
	voting     *voting.Voting
	dispatcher Dispatcher
	logDB      *logdb.LogDB
	limit      uint64
}

// New creates the handlers. dispatcher may be nil, receipts then keep their
// messages for the caller only. The receipts route is served when logDB is set.
func New(v *voting.Voting, dispatcher Dispatcher, logDB *logdb.LogDB, receiptsLimit uint64) *Ledger {
	if receiptsLimit == 0 {
		receiptsLimit = DefaultReceiptsLimit
	}
	return &Ledger{v, dispatcher, logDB, receiptsLimit}
}

func requireCaller(caller *thor.Address) error {
	if caller == nil {
		return utils.BadRequest(errors.New("caller: required"))
	}
	return nil
}

func (l *Ledger) respond(w http.ResponseWriter, receipt *voting.Receipt, err error) error {
	if err != nil {
		return err
	}
	if l.dispatcher != nil && len(receipt.Messages) > 0 {
		l.dispatcher.Dispatch(receipt.Messages)
	}
	return utils.WriteJSON(w, receipt)
}

func (l *Ledger) handleRegister(w http.ResponseWriter, req *http.Request) error {
	var body CallerRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := requireCaller(body.Caller); err != nil {
		return err
	}
	receipt, err := l.voting.Register(req.Context(), *body.Caller)
	return l.respond(w, receipt, err)
}

func (l *Ledger) handleUnregister(w http.ResponseWriter, req *http.Request) error {
	var body CallerRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := requireCaller(body.Caller); err != nil {
		return err
	}
	receipt, err := l.voting.Unregister(req.Context(), *body.Caller)
	return l.respond(w, receipt, err)
}

func (l *Ledger) handleSetVotingPower(w http.ResponseWriter, req *http.Request) error {
	var body SetVotingPowerRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := requireCaller(body.Caller); err != nil {
		return err
	}
	if body.TokenID == "" {
		return utils.BadRequest(errors.New("tokenId: required"))
	}
	receipt, err := l.voting.SetVotingPower(req.Context(), *body.Caller, body.TokenID, body.Power)
	return l.respond(w, receipt, err)
}

func (l *Ledger) handleSync(w http.ResponseWriter, req *http.Request) error {
	var body SyncRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := requireCaller(body.Caller); err != nil {
		return err
	}
	if body.TokenID == "" {
		return utils.BadRequest(errors.New("tokenId: required"))
	}
	receipt, err := l.voting.Sync(req.Context(), *body.Caller, body.TokenID)
	return l.respond(w, receipt, err)
}

func (l *Ledger) parseHookRequest(req *http.Request) (*HookRequest, error) {
	var body HookRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := requireCaller(body.Caller); err != nil {
		return nil, err
	}
	return &body, nil
}

func (l *Ledger) handleAddHook(w http.ResponseWriter, req *http.Request) error {
	body, err := l.parseHookRequest(req)
	if err != nil {
		return err
	}
	receipt, err := l.voting.AddHook(req.Context(), *body.Caller, body.Addr)
	return l.respond(w, receipt, err)
}

func (l *Ledger) handleRemoveHook(w http.ResponseWriter, req *http.Request) error {
	body, err := l.parseHookRequest(req)
	if err != nil {
		return err
	}
	receipt, err := l.voting.RemoveHook(req.Context(), *body.Caller, body.Addr)
	return l.respond(w, receipt, err)
}

func (l *Ledger) handleUpdateOwnership(w http.ResponseWriter, req *http.Request) error {
	var body OwnershipRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := requireCaller(body.Caller); err != nil {
		return err
	}
	action := voting.OwnershipAction{
		Kind:   voting.ActionKind(body.Action),
		Expiry: body.Expiry,
	}
	switch action.Kind {
	case voting.TransferOwnership:
		if body.NewOwner == nil {
			return utils.BadRequest(errors.New("newOwner: required"))
		}
		action.NewOwner = *body.NewOwner
	case voting.AcceptOwnership, voting.RenounceOwnership:
	default:
		return utils.BadRequest(errors.Errorf("action: unsupported %q", body.Action))
	}
	receipt, err := l.voting.UpdateOwnership(req.Context(), *body.Caller, action)
	return l.respond(w, receipt, err)
}

func (l *Ledger) handleGetVoterPower(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	height, err := utils.StringToUint64(req.URL.Query().Get("height"))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "height"))
	}
	power, err := l.voting.WeightAt(addr, height)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, power)
}

func (l *Ledger) handleGetTotalPower(w http.ResponseWriter, req *http.Request) error {
	height, err := utils.StringToUint64(req.URL.Query().Get("height"))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "height"))
	}
	power, err := l.voting.TotalAt(height)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, power)
}

func (l *Ledger) handleGetRegisteredNft(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	id, err := l.voting.RegisteredNft(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &RegisteredNft{id})
}

func (l *Ledger) handleListVoters(w http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query()
	var startAfter *thor.Address
	if s := query.Get("startAfter"); s != "" {
		addr, err := thor.ParseAddress(s)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "startAfter"))
		}
		startAfter = &addr
	}
	limit, err := utils.StringToUint32(query.Get("limit"))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "limit"))
	}
	voters, err := l.voting.ListVoters(startAfter, limit)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, voters)
}

func (l *Ledger) handleGetHooks(w http.ResponseWriter, _ *http.Request) error {
	list, err := l.voting.Hooks()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, list)
}

func (l *Ledger) handleGetOwnership(w http.ResponseWriter, _ *http.Request) error {
	ow, err := l.voting.Ownership()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, ow)
}

func (l *Ledger) handleGetInfo(w http.ResponseWriter, _ *http.Request) error {
	info, err := l.voting.Info()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, info)
}

func (l *Ledger) handleGetConfig(w http.ResponseWriter, _ *http.Request) error {
	dao, err := l.voting.Dao()
	if err != nil {
		return err
	}
	nft, err := l.voting.NftContract()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Config{dao, nft})
}

func (l *Ledger) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/register").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(l.handleRegister))
	sub.Path("/unregister").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(l.handleUnregister))
	sub.Path("/voting-power").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(l.handleSetVotingPower))
	sub.Path("/sync").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(l.handleSync))
	sub.Path("/hooks").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(l.handleAddHook))
	sub.Path("/hooks").Methods(http.MethodDelete).HandlerFunc(utils.WrapHandlerFunc(l.handleRemoveHook))
	sub.Path("/hooks").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleGetHooks))
	sub.Path("/ownership").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(l.handleUpdateOwnership))
	sub.Path("/ownership").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleGetOwnership))
	sub.Path("/voters").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleListVoters))
	sub.Path("/voters/{address}/power").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleGetVoterPower))
	sub.Path("/voters/{address}/nft").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleGetRegisteredNft))
	sub.Path("/total-power").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleGetTotalPower))
	sub.Path("/info").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleGetInfo))
	sub.Path("/config").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleGetConfig))
	if l.logDB != nil {
		sub.Path("/receipts").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(l.handleFilterReceipts))
	}
}
