// Package httpapi is the Gin-based HTTP surface over the single-session
// allocation workflow: POST /api/upload, POST /api/solve,
// GET /api/result, GET /api/export. It is thin glue — request binding,
// response envelopes, and Kind-to-status mapping — over the core
// pipeline, which never sees a *gin.Context.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/cigdist/huoyuan-allocator/internal/allocid"
	"github.com/cigdist/huoyuan-allocator/internal/cache"
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/export"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/cigdist/huoyuan-allocator/internal/obslog"
	"github.com/cigdist/huoyuan-allocator/internal/obsmetrics"
	"github.com/cigdist/huoyuan-allocator/internal/session"
	"github.com/cigdist/huoyuan-allocator/internal/sessionstore"
)

// ErrorResponse is the error envelope returned by every handler.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is the success envelope returned by every handler.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Controller holds the single live session plus the optional ambient
// collaborators (persistence, metrics, logging). Store and Metrics may
// be nil; every call site nil-checks before using them, since neither
// participates in the correctness of a solve.
type Controller struct {
	session *session.Session
	store   *sessionstore.Store
	metrics *obsmetrics.Metrics
	log     *obslog.Logger
}

// NewController wires a Controller. store, paramsCache, and metrics are
// optional (pass nil to run without Postgres persistence, Redis-backed
// parameter caching, or Prometheus).
func NewController(store *sessionstore.Store, paramsCache *cache.ParamsCache, metrics *obsmetrics.Metrics, log *obslog.Logger) *Controller {
	if log == nil {
		log = obslog.NewNop()
	}
	return &Controller{
		session: session.NewWithCache(paramsCache),
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

// uploadRequest is the multipart-form-adjacent JSON body used when the
// caller has already parsed the workbook into rows (e.g. a test
// harness or a non-Excel client); a real browser client posts the
// workbook to UploadFile instead, and the CLI calls the Excel loader
// directly without going through HTTP.
type uploadRequest struct {
	Products    []*facade.Product                 `json:"products"`
	Constraints map[string]facade.RoundConstraint `json:"round_constraints"`
	Config      *config.Config                    `json:"config,omitempty"`
}

// Upload handles POST /api/upload with an already-decoded product and
// round-constraint table (JSON body); multipart Excel parsing is
// UploadFile's job.
func (c *Controller) Upload(ctx *gin.Context) {
	var req uploadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	ds, err := facade.NewDataset(req.Products, req.Constraints, true)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	cfg := config.Default()
	if req.Config != nil {
		cfg = *req.Config
	}

	id := allocid.NewSessionID()
	if err := c.session.Upload(id, ds, cfg); err != nil {
		c.respondError(ctx, err)
		return
	}

	if c.store != nil {
		snap, _ := c.session.Current()
		if err := c.store.SaveUpload(id, snap.UploadedAt, len(ds.ProductTable()), len(ds.Rounds())); err != nil {
			c.log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("sessionstore: save upload failed")
		}
	}

	ctx.JSON(http.StatusOK, SuccessResponse{Message: "upload accepted", Data: gin.H{"session_id": id}})
}

// UploadFile handles an Excel workbook posted as multipart form data,
// using internal/facade's loader end to end.
func (c *Controller) UploadFile(ctx *gin.Context) {
	file, err := ctx.FormFile("workbook")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing workbook file", Details: err.Error()})
		return
	}

	tmpPath := "/tmp/" + allocid.NewSolveID() + "_" + file.Filename
	if err := ctx.SaveUploadedFile(file, tmpPath); err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save upload", Details: err.Error()})
		return
	}

	ds, err := facade.Load(tmpPath)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	id := allocid.NewSessionID()
	cfg := config.Default()
	if err := c.session.Upload(id, ds, cfg); err != nil {
		c.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, SuccessResponse{Message: "upload accepted", Data: gin.H{"session_id": id}})
}

// solveRequest optionally overrides the session's configuration before
// solving.
type solveRequest struct {
	Config *config.Config `json:"config,omitempty"`
}

// Solve handles POST /api/solve: runs one Allocate call against the
// current session and records its metrics/persistence side effects.
func (c *Controller) Solve(ctx *gin.Context) {
	var req solveRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
			return
		}
	}
	if req.Config != nil {
		if err := c.session.Configure(*req.Config); err != nil {
			c.respondError(ctx, err)
			return
		}
	}

	log := c.log
	if snap, ok := c.session.Current(); ok {
		log = log.WithSession(snap.ID)
	}
	result, err := c.session.Solve(log)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	if c.metrics != nil {
		c.metrics.RecordSolve(string(result.Status), result.SolveDuration.Seconds())
		for _, fr := range result.Report.Families {
			for range fr.Violations {
				c.metrics.RecordViolation(fr.Family)
			}
		}
		for _, adj := range result.Adjustments {
			c.metrics.RecordAdjustment(adj.Pass)
		}
	}

	if c.store != nil {
		if snap, ok := c.session.Current(); ok {
			if err := c.store.SaveSolve(snap.ID, snap.SolvedAt, result); err != nil {
				c.log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("sessionstore: save solve failed")
			}
		}
	}

	ctx.JSON(http.StatusOK, SuccessResponse{Message: "solve completed", Data: gin.H{
		"status":          result.Status,
		"objective_value": result.ObjectiveValue,
		"overall_valid":   result.Report.OverallValid,
	}})
}

// Result handles GET /api/result: returns the last solve's allocation
// matrix, or 404 if nothing has solved yet in this session.
func (c *Controller) Result(ctx *gin.Context) {
	result, ok := c.session.LastResult()
	if !ok {
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "no solve result yet"})
		return
	}

	ctx.JSON(http.StatusOK, SuccessResponse{Message: "ok", Data: gin.H{
		"allocation":      result.Allocation,
		"summary":         result.Summary,
		"status":          result.Status,
		"objective_value": result.ObjectiveValue,
		"report":          result.Report,
	}})
}

// Export handles GET /api/export?format=xlsx|csv: renders the last
// solve's result table (product columns, per-round allocation, derived
// totals) to a file and streams it back as an attachment.
func (c *Controller) Export(ctx *gin.Context) {
	result, ok := c.session.LastResult()
	if !ok {
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "no solve result yet"})
		return
	}
	snap, ok := c.session.Current()
	if !ok {
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "no session"})
		return
	}

	format := ctx.DefaultQuery("format", "xlsx")
	path := "/tmp/" + allocid.NewSolveID() + "." + format
	var err error
	switch format {
	case "xlsx":
		err = export.WriteWorkbook(path, snap.Dataset, result)
	case "csv":
		err = export.WriteCSV(path, snap.Dataset, result)
	default:
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported format: " + format})
		return
	}
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	ctx.FileAttachment(path, "allocation_result."+format)
}

// HealthCheck reports process liveness.
func (c *Controller) HealthCheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"service": "huoyuan-allocator", "status": "healthy"})
}

// respondError maps an allocerr.Error's Kind to an HTTP status; the
// core packages never carry HTTP concerns themselves.
func (c *Controller) respondError(ctx *gin.Context, err error) {
	ae, ok := err.(*allocerr.Error)
	if !ok {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Details: err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case allocerr.ConfigError, allocerr.ModelError:
		status = http.StatusBadRequest
	case allocerr.InfeasibleError:
		status = http.StatusUnprocessableEntity
	case allocerr.SolverError:
		status = http.StatusInternalServerError
	}

	ctx.JSON(status, ErrorResponse{Error: ae.Message, Code: ae.Code, Details: ae.Error()})
}
