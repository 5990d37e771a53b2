package api

import (
	"net/http"

	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConsts "github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/service"
)

var _ DigestTrigger = (*service.WeeklyDigestScheduler)(nil)

// DigestController 手动触发一次周报, 与定时触发共用 running 标志
type DigestController struct {
	*core.BaseComponent
	Digest DigestTrigger `infra:"dep:digest_scheduler"`
}

func NewDigestController() *DigestController {
	return &DigestController{BaseComponent: core.NewBaseComponent(bizConsts.COMP_CTRL_DIGEST)}
}

func (dc *DigestController) runDigest(w http.ResponseWriter, r *http.Request) {
	if err := dc.Digest.Trigger(r.Context()); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Digest started"})
}
