package recon

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/registry/registry/internal/domain/evaluation"
	"github.com/registry/registry/pkg/pagination"
)

// Handler exposes the engine's read-only reports over HTTP. Destructive
// passes stay on the CLI, behind its confirmation gate; nothing here mutates
// the store.
type Handler struct {
	verifier *Verifier
	detector *Detector
	merges   *MergeService
	evals    evaluation.Repository
}

func NewHandler(verifier *Verifier, detector *Detector, merges *MergeService, evals evaluation.Repository) *Handler {
	return &Handler{verifier: verifier, detector: detector, merges: merges, evals: evals}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("/reconciliation")
	group.GET("/report", h.GetVerificationReport)
	group.GET("/duplicates", h.GetDuplicateReport)
	group.GET("/merge-plan", h.GetMergePlan)
}

// GetVerificationReport returns the aggregate integrity report.
func (h *Handler) GetVerificationReport(c echo.Context) error {
	report, err := h.verifier.Report(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

// GetDuplicateReport runs the detector over a fresh snapshot and returns the
// per-patient summaries, paginated, with the global tally.
func (h *Handler) GetDuplicateReport(c echo.Context) error {
	all, err := h.evals.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	report := h.detector.Detect(GroupByPatient(all))

	p := pagination.FromContext(c)
	summaries := report.Summaries
	total := len(summaries)
	if p.Offset >= total {
		summaries = nil
	} else {
		end := p.Offset + p.Limit
		if end > total {
			end = total
		}
		summaries = summaries[p.Offset:end]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"generated_at":     report.GeneratedAt,
		"patients_scanned": report.PatientsScanned,
		"tally_by_class":   report.TallyByClass,
		"exact_duplicates": report.ExactDuplicates,
		"summaries":        pagination.NewResponse(summaries, total, p.Limit, p.Offset),
	})
}

// GetMergePlan returns the dry-run merge resolution: what would be kept and
// deleted if the pass ran with execute. The backup artifact is written as a
// side effect, same as a CLI dry run.
func (h *Handler) GetMergePlan(c echo.Context) error {
	result, err := h.merges.Run(c.Request().Context(), false)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}
