// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vechain/sbtvote/api/utils"
	"github.com/vechain/sbtvote/health"
)

func mountHealth(root *mux.Router, h *health.Health) {
	root.Path("/health").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(func(w http.ResponseWriter, _ *http.Request) error {
		status := h.Status()
		w.Header().Set("Content-Type", utils.JSONContentType)
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		return json.NewEncoder(w).Encode(status)
	}))
}
