package api

import (
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scale_tracker/internal/codec"
	"scale_tracker/internal/sales"
	"scale_tracker/internal/serial"
)

// salesHandler holds the record store and implements the HTTP handlers.
type salesHandler struct {
	salesService  *sales.Service
	logger        *zap.Logger
	maxUploadSize int64
	now           func() time.Time
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, logger *zap.Logger, opts Options) *salesHandler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &salesHandler{
		salesService:  salesService,
		logger:        logger,
		maxUploadSize: opts.MaxUploadSize,
		now:           opts.Now,
	}
}

type saleRequest struct {
	SerialNumber string `json:"serialNumber" binding:"required"`
	CompanyName  string `json:"companyName"  binding:"required"`
	AgentName    string `json:"agentName"    binding:"required"`
	CustomerName string `json:"customerName" binding:"required"`
	Telephone    string `json:"telephone"    binding:"required"`
	Status       string `json:"status"`
	Date         string `json:"date"`
}

func (r saleRequest) sale() sales.Sale {
	return sales.Sale{
		SerialNumber: r.SerialNumber,
		CompanyName:  r.CompanyName,
		AgentName:    r.AgentName,
		CustomerName: r.CustomerName,
		Telephone:    r.Telephone,
		Status:       r.Status,
		Date:         r.Date,
	}
}

type rangeRequest struct {
	Start        string `json:"start"        binding:"required"`
	End          string `json:"end"          binding:"required"`
	CompanyName  string `json:"companyName"  binding:"required"`
	AgentName    string `json:"agentName"    binding:"required"`
	CustomerName string `json:"customerName" binding:"required"`
	Telephone    string `json:"telephone"    binding:"required"`
	Status       string `json:"status"`
	Date         string `json:"date"`
}

type repairRequest struct {
	SerialNumber     string `json:"serialNumber" binding:"required"`
	CompanyName      string `json:"companyName"`
	IssueDescription string `json:"issueDescription"`
	SendDescription  string `json:"sendDescription"`
	Status           string `json:"status"`
	Date             string `json:"date"`
}

func (r repairRequest) repair() sales.Repair {
	return sales.Repair{
		SerialNumber:     r.SerialNumber,
		CompanyName:      r.CompanyName,
		IssueDescription: r.IssueDescription,
		SendDescription:  r.SendDescription,
		Status:           r.Status,
		Date:             r.Date,
	}
}

type deleteRequest struct {
	IDs     []string `json:"ids"`
	Indices []int    `json:"indices"`
}

// listMetadata summarizes a query result.
type listMetadata struct {
	Quantity int            `json:"quantity"`
	ByStatus map[string]int `json:"byStatus"`
}

func collect[T any](seq iter.Seq[T], status func(T) string) ([]T, listMetadata) {
	out := make([]T, 0)
	meta := listMetadata{ByStatus: map[string]int{}}
	for r := range seq {
		out = append(out, r)
		meta.Quantity++
		meta.ByStatus[status(r)]++
	}
	return out, meta
}

// reply writes a success body, adding a warning while persistence is
// failing.
func (h *salesHandler) reply(ctx *gin.Context, code int, body gin.H) {
	if err := h.salesService.PersistenceErr(); err != nil {
		body["warning"] = "changes are kept in memory but could not be saved: " + err.Error()
	}
	ctx.JSON(code, body)
}

type rowErrorBody struct {
	Line   int    `json:"line"`
	Serial string `json:"serialNumber,omitempty"`
	Error  string `json:"error"`
}

// fail maps a store error to a status code and JSON body.
func (h *salesHandler) fail(ctx *gin.Context, op string, err error) {
	body := gin.H{"error": err.Error()}

	var importErr *sales.ImportError
	var conflictErr *sales.ConflictError
	var tooLarge *http.MaxBytesError
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &tooLarge):
		code = http.StatusRequestEntityTooLarge
		body["error"] = fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)
	case errors.As(err, &importErr):
		code = http.StatusUnprocessableEntity
		rows := make([]rowErrorBody, len(importErr.Rows))
		for i, r := range importErr.Rows {
			rows[i] = rowErrorBody{Line: r.Line, Serial: r.Serial, Error: r.Err.Error()}
		}
		body["rows"] = rows
	case errors.As(err, &conflictErr):
		code = http.StatusConflict
		if errors.Is(err, sales.ErrDuplicateInImport) {
			code = http.StatusUnprocessableEntity
		}
		body["conflicts"] = conflictErr.Serials
	case errors.Is(err, sales.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, sales.ErrDuplicateSerial):
		code = http.StatusConflict
	case errors.Is(err, sales.ErrMissingRequiredField):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, sales.ErrUnknownSerial),
		errors.Is(err, serial.ErrFormat),
		errors.Is(err, serial.ErrRange),
		errors.Is(err, sales.ErrCodec):
		code = http.StatusBadRequest
	}

	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		body = gin.H{"error": "failed to " + op}
	} else {
		h.logger.Warn("request rejected", zap.String("op", op), zap.Int("status", code), zap.Error(err))
	}
	ctx.JSON(code, body)
}

func (h *salesHandler) badRequest(ctx *gin.Context, err error) {
	h.logger.Warn("failed to bind request", zap.Error(err))
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
}

func (h *salesHandler) handleListSales(ctx *gin.Context) {
	var f sales.Filter
	if err := ctx.ShouldBindQuery(&f); err != nil {
		h.badRequest(ctx, err)
		return
	}
	results, meta := collect(h.salesService.Query(f).Sales(), func(s sales.Sale) string { return s.Status })
	ctx.JSON(http.StatusOK, gin.H{"results": results, "metadata": meta})
}

func (h *salesHandler) handleListRepairs(ctx *gin.Context) {
	var f sales.Filter
	if err := ctx.ShouldBindQuery(&f); err != nil {
		h.badRequest(ctx, err)
		return
	}
	results, meta := collect(h.salesService.Query(f).Repairs(), func(r sales.Repair) string { return r.Status })
	ctx.JSON(http.StatusOK, gin.H{"results": results, "metadata": meta})
}

func (h *salesHandler) handleCompanies(ctx *gin.Context) {
	companies := h.salesService.DistinctCompanies()
	if companies == nil {
		companies = []string{}
	}
	ctx.JSON(http.StatusOK, gin.H{"results": companies})
}

func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	sale, err := h.salesService.Sale(ctx.Param("id"))
	if err != nil {
		h.fail(ctx, "get sale", err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

func (h *salesHandler) handleSaleRepairs(ctx *gin.Context) {
	sale, err := h.salesService.Sale(ctx.Param("id"))
	if err != nil {
		h.fail(ctx, "get sale repairs", err)
		return
	}
	repairs := h.salesService.RepairsFor(sale.SerialNumber)
	if repairs == nil {
		repairs = []sales.Repair{}
	}
	ctx.JSON(http.StatusOK, gin.H{"sale": sale, "results": repairs})
}

func (h *salesHandler) handleCreateSale(ctx *gin.Context) {
	var req saleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.badRequest(ctx, err)
		return
	}

	sale, err := h.salesService.AddSale(req.sale())
	if err != nil {
		h.fail(ctx, "create sale", err)
		return
	}
	h.reply(ctx, http.StatusCreated, gin.H{"sale": sale})
}

func (h *salesHandler) handleCreateSaleRange(ctx *gin.Context) {
	var req rangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.badRequest(ctx, err)
		return
	}

	template := sales.Sale{
		CompanyName:  req.CompanyName,
		AgentName:    req.AgentName,
		CustomerName: req.CustomerName,
		Telephone:    req.Telephone,
		Status:       req.Status,
		Date:         req.Date,
	}
	n, err := h.salesService.AddSaleRange(req.Start, req.End, template)
	if err != nil {
		h.fail(ctx, "create sale range", err)
		return
	}
	h.reply(ctx, http.StatusCreated, gin.H{"created": n})
}

func (h *salesHandler) handleImportSales(ctx *gin.Context) {
	file, err := h.openUpload(ctx)
	if err != nil {
		h.fail(ctx, "import sales", err)
		return
	}
	defer file.Close()

	rows, err := codec.ReadSalesCSV(file)
	if err != nil {
		h.fail(ctx, "import sales", err)
		return
	}

	n, err := h.salesService.ImportSales(rows)
	if err != nil {
		h.fail(ctx, "import sales", err)
		return
	}
	h.reply(ctx, http.StatusCreated, gin.H{"created": n})
}

func (h *salesHandler) handleUpdateSale(ctx *gin.Context) {
	var req saleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.badRequest(ctx, err)
		return
	}

	sale, err := h.salesService.UpdateSale(ctx.Param("id"), req.sale())
	if err != nil {
		h.fail(ctx, "update sale", err)
		return
	}
	h.reply(ctx, http.StatusOK, gin.H{"sale": sale})
}

func (h *salesHandler) handleDeleteSale(ctx *gin.Context) {
	if err := h.salesService.DeleteSale(ctx.Param("id")); err != nil {
		h.fail(ctx, "delete sale", err)
		return
	}
	h.reply(ctx, http.StatusOK, gin.H{"deleted": 1})
}

func (h *salesHandler) handleDeleteSales(ctx *gin.Context) {
	var req deleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.badRequest(ctx, err)
		return
	}
	if (req.IDs == nil) == (req.Indices == nil) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of ids or indices is required"})
		return
	}

	var (
		n   int
		err error
	)
	if req.IDs != nil {
		n, err = h.salesService.DeleteSalesBatch(req.IDs)
	} else {
		n, err = h.salesService.DeleteSalesAt(req.Indices)
	}
	if err != nil {
		h.fail(ctx, "delete sales", err)
		return
	}
	h.reply(ctx, http.StatusOK, gin.H{"deleted": n})
}

func (h *salesHandler) handleCreateRepair(ctx *gin.Context) {
	var req repairRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.badRequest(ctx, err)
		return
	}

	repair, err := h.salesService.AddRepair(req.repair())
	if err != nil {
		h.fail(ctx, "create repair", err)
		return
	}
	h.reply(ctx, http.StatusCreated, gin.H{"repair": repair})
}

func (h *salesHandler) handleUpdateRepair(ctx *gin.Context) {
	var req repairRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.badRequest(ctx, err)
		return
	}

	repair, err := h.salesService.UpdateRepair(ctx.Param("id"), req.repair())
	if err != nil {
		h.fail(ctx, "update repair", err)
		return
	}
	h.reply(ctx, http.StatusOK, gin.H{"repair": repair})
}

func (h *salesHandler) handleDeleteRepair(ctx *gin.Context) {
	if err := h.salesService.DeleteRepair(ctx.Param("id")); err != nil {
		h.fail(ctx, "delete repair", err)
		return
	}
	h.reply(ctx, http.StatusOK, gin.H{"deleted": 1})
}

func (h *salesHandler) handleExport(ctx *gin.Context) {
	snap := h.salesService.Snapshot()

	switch format := ctx.DefaultQuery("format", "xlsx"); format {
	case "xlsx":
		ctx.Header("Content-Disposition", attachment(codec.ExportXLSX))
		ctx.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := codec.WriteXLSX(ctx.Writer, snap); err != nil {
			h.logger.Error("failed to write xlsx export", zap.Error(err))
		}
	case "csv":
		ctx.Header("Content-Disposition", attachment(codec.ExportCSV))
		ctx.Header("Content-Type", "text/csv")
		if err := codec.WriteCSV(ctx.Writer, snap); err != nil {
			h.logger.Error("failed to write csv export", zap.Error(err))
		}
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown export format %q", format)})
	}
}

func (h *salesHandler) handleBackup(ctx *gin.Context) {
	ctx.Header("Content-Disposition", attachment(codec.BackupFileName(h.now())))
	ctx.Header("Content-Type", "application/json")
	if err := codec.EncodeBackup(ctx.Writer, h.salesService.Snapshot()); err != nil {
		h.logger.Error("failed to write backup", zap.Error(err))
	}
}

func (h *salesHandler) handleRestore(ctx *gin.Context) {
	overwrite := ctx.Query("overwrite") == "true"

	file, err := h.openUpload(ctx)
	if err != nil {
		h.fail(ctx, "restore backup", err)
		return
	}
	defer file.Close()

	in, err := codec.DecodeBackup(file)
	if err != nil {
		h.fail(ctx, "restore backup", err)
		return
	}

	res, err := h.salesService.Restore(in, func([]string) bool { return overwrite })
	if err != nil {
		h.fail(ctx, "restore backup", err)
		return
	}
	h.reply(ctx, http.StatusOK, gin.H{"result": res})
}

func (h *salesHandler) handleStatus(ctx *gin.Context) {
	if err := h.salesService.PersistenceErr(); err != nil {
		ctx.JSON(http.StatusOK, gin.H{"persistence": "degraded", "error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"persistence": "ok"})
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
