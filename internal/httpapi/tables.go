package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astarworks/flextable/pkg/engine"
	"github.com/astarworks/flextable/pkg/types"
)

type createTableRequest struct {
	WorkspaceID string                     `json:"workspaceId" binding:"required"`
	Name        string                     `json:"name" binding:"required"`
	Description string                     `json:"description"`
	Properties  []types.PropertyDefinition `json:"properties"`
}

func (s *Server) createTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tbl, err := s.schemas.CreateTable(req.WorkspaceID, req.Name, req.Description, req.Properties)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tbl)
}

func (s *Server) listTables(c *gin.Context) {
	tables, err := s.schemas.ListTables(c.Query("workspaceId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

func (s *Server) getTable(c *gin.Context) {
	tbl, err := s.schemas.GetTable(c.Param("tableID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tbl)
}

type updateTableRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) updateTable(c *gin.Context) {
	var req updateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tbl, err := s.schemas.UpdateTable(c.Param("tableID"), engine.TablePatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tbl)
}

func (s *Server) deleteTable(c *gin.Context) {
	if err := s.schemas.DeleteTable(c.Param("tableID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addProperty(c *gin.Context) {
	var def types.PropertyDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		badRequest(c, err)
		return
	}
	tbl, err := s.schemas.AddProperty(c.Param("tableID"), def)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tbl)
}

type updatePropertyRequest struct {
	Key          *string               `json:"key"`
	Type         *string               `json:"type"`
	DisplayName  *string               `json:"displayName"`
	Required     *bool                 `json:"required"`
	Config       *types.PropertyConfig `json:"config"`
	DefaultValue json.RawMessage       `json:"defaultValue"`
	Description  *string               `json:"description"`
}

func (s *Server) updateProperty(c *gin.Context) {
	var req updatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	patch := engine.PropertyPatch{
		Key:         req.Key,
		DisplayName: req.DisplayName,
		Required:    req.Required,
		Config:      req.Config,
		Description: req.Description,
	}
	if req.Type != nil {
		t := types.PropertyType(*req.Type)
		patch.Type = &t
	}
	if len(req.DefaultValue) > 0 {
		patch.HasDefault = true
		// A JSON null clears the default.
		if string(req.DefaultValue) != "null" {
			var v any
			if err := json.Unmarshal(req.DefaultValue, &v); err != nil {
				badRequest(c, err)
				return
			}
			patch.DefaultValue = v
		}
	}

	tbl, err := s.schemas.UpdateProperty(c.Param("tableID"), c.Param("key"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tbl)
}

func (s *Server) removeProperty(c *gin.Context) {
	tbl, report, err := s.schemas.RemoveProperty(c.Param("tableID"), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": tbl, "cascade": report})
}

type reorderRequest struct {
	Order []string `json:"order" binding:"required"`
}

func (s *Server) reorderProperties(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tbl, err := s.schemas.ReorderProperties(c.Param("tableID"), req.Order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tbl)
}
