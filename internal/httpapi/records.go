package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/astarworks/flextable/pkg/engine"
	"github.com/astarworks/flextable/pkg/types"
)

// listRecords serves GET /v1/tables/:tableID/records.
//
// Query parameters: page (1-based), pageSize, sort (property key or
// "position"), order (asc|desc), filters (URL-encoded JSON array of
// {propertyKey, operator, value}).
func (s *Server) listRecords(c *gin.Context) {
	q := engine.ListQuery{}

	var err error
	if q.Page, err = intQuery(c, "page", 1); err != nil {
		badRequest(c, err)
		return
	}
	if q.PageSize, err = intQuery(c, "pageSize", 0); err != nil {
		badRequest(c, err)
		return
	}
	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Filters); err != nil {
			badRequest(c, err)
			return
		}
	}
	if key := c.Query("sort"); key != "" {
		q.Sort = &engine.SortSpec{Key: key, Desc: c.Query("order") == "desc"}
	}

	page, err := s.records.ListRecords(c.Param("tableID"), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getRecord(c *gin.Context) {
	rec, err := s.records.GetRecord(c.Param("recordID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type createRecordRequest struct {
	Data map[string]any `json:"data"`
}

func (s *Server) createRecord(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := s.records.CreateRecord(c.Param("tableID"), req.Data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type updateRecordRequest struct {
	Data            map[string]any `json:"data" binding:"required"`
	ExpectedVersion *int64         `json:"expectedVersion" binding:"required"`
}

func (s *Server) updateRecord(c *gin.Context) {
	var req updateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := s.records.UpdateRecord(c.Param("recordID"), req.Data, *req.ExpectedVersion)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteRecord(c *gin.Context) {
	var expected *int64
	if raw := c.Query("expectedVersion"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, err)
			return
		}
		expected = &v
	}
	if err := s.records.DeleteRecord(c.Param("recordID"), expected); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// batchOutcome is one per-item result of a batch call. Success and failure
// items coexist in one response; order follows the request.
type batchOutcome struct {
	Success bool          `json:"success"`
	Record  *types.Record `json:"record,omitempty"`
	Error   *errorInfo    `json:"error,omitempty"`
}

func batchOutcomes(results []engine.BatchResult) []batchOutcome {
	out := make([]batchOutcome, len(results))
	for i, r := range results {
		if r.Err != nil {
			_, info := classify(r.Err)
			out[i] = batchOutcome{Error: &info}
			continue
		}
		out[i] = batchOutcome{Success: true, Record: r.Record}
	}
	return out
}

type batchCreateRequest struct {
	Items []engine.BatchCreateItem `json:"items" binding:"required"`
}

func (s *Server) batchCreate(c *gin.Context) {
	var req batchCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": batchOutcomes(s.records.CreateBatch(req.Items))})
}

type batchUpdateRequest struct {
	Items []engine.BatchUpdateItem `json:"items" binding:"required"`
}

func (s *Server) batchUpdate(c *gin.Context) {
	var req batchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": batchOutcomes(s.records.UpdateBatch(req.Items))})
}

type batchDeleteRequest struct {
	RecordIDs []string `json:"recordIds" binding:"required"`
}

func (s *Server) batchDelete(c *gin.Context) {
	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": batchOutcomes(s.records.DeleteBatch(req.RecordIDs))})
}

// intQuery parses an integer query parameter with a default.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
