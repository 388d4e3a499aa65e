package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/Kelokecl/keloke-trends-worker/internal/config"
	"github.com/Kelokecl/keloke-trends-worker/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setClientSecretReq struct {
	Secret string `json:"secret"`
}

// SetClientSecret stores the OAuth client secret in the OS keychain under
// the configured account.
func (h SecretsHandler) SetClientSecret(w http.ResponseWriter, r *http.Request) {
	var req setClientSecretReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteFail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetClientSecret(cfg.OAuth.KeyringAccount, req.Secret); err != nil {
		WriteFail(w, http.StatusBadRequest, "failed to store secret: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteClientSecret(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.DeleteClientSecret(cfg.OAuth.KeyringAccount); err != nil {
		WriteFail(w, http.StatusBadRequest, "failed to delete secret: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
