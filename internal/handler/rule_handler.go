package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"oceanid/internal/port"
	"oceanid/internal/rules"
)

// RuleSnapshots is the part of rules.Provider the handler needs.
type RuleSnapshots interface {
	Current() (*rules.Snapshot, error)
	Reload(ctx context.Context) (*rules.Snapshot, error)
}

// RuleHandler handles cleaning rule endpoints.
type RuleHandler struct {
	repo      port.CleaningRuleRepository
	snapshots RuleSnapshots
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(repo port.CleaningRuleRepository, snapshots RuleSnapshots) *RuleHandler {
	return &RuleHandler{repo: repo, snapshots: snapshots}
}

// List handles GET /api/v1/rules
func (h *RuleHandler) List(c *gin.Context) {
	defs, err := h.repo.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, defs)
}

// Reload handles POST /api/v1/rules/reload
// @Summary Reload the rule snapshot
// @Description Builds a new snapshot from the enabled rules. Runs already in flight keep their snapshot.
// @Tags rules
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 422 {object} APIResponse "A rule failed to compile; the previous snapshot stays active"
// @Router /rules/reload [post]
func (h *RuleHandler) Reload(c *gin.Context) {
	snap, err := h.snapshots.Reload(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"rules": snap.Len(), "order": snap.RuleIDs()})
}

// Conflicts handles GET /api/v1/rules/conflicts
func (h *RuleHandler) Conflicts(c *gin.Context) {
	snap, err := h.snapshots.Current()
	if err != nil {
		HandleError(c, err)
		return
	}

	found := rules.DetectConflicts(snap, rules.ProbeSamples(snap))
	out := make([]gin.H, 0, len(found))
	for _, cf := range found {
		out = append(out, gin.H{
			"first":   cf.First,
			"second":  cf.Second,
			"column":  cf.Sample.Column,
			"sample":  cf.Sample.Value,
			"forward": cf.Forward,
			"reverse": cf.Reverse,
		})
	}
	RespondOK(c, out)
}
