package apiserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/preslavrachev/nailgun/adapters/sql"
)

// startTask answers 202 with a new task
func (s *Server) startTask(c *gin.Context, label string, fail bool) {
	task, err := s.store.CreateTask(c.Request.Context(), sql.TaskSpec{
		Label: label,
		Polls: s.opts.TaskPolls,
		Fail:  fail,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, task)
}

// GET /foreman_tasks/api/tasks/:id
//
// Each read is one poll: the task moves on before it is returned.
func (s *Server) getTask(c *gin.Context) {
	task, err := s.store.AdvanceTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type taskSearch struct {
	Type     string `json:"type"`
	TaskID   string `json:"task_id"`
	SearchID string `json:"search_id"`
}

// POST /foreman_tasks/api/tasks/bulk_search
//
// Looks several tasks up at once without advancing them.
func (s *Server) bulkSearchTasks(c *gin.Context) {
	var req struct {
		Searches []taskSearch `json:"searches"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	out := make([]gin.H, 0, len(req.Searches))
	for _, search := range req.Searches {
		results := []sql.Record{}
		task, err := s.store.GetTask(c.Request.Context(), search.TaskID)
		switch {
		case err == nil:
			results = append(results, task)
		case !errors.Is(err, sql.ErrNotFound):
			writeStoreError(c, err)
			return
		}
		out = append(out, gin.H{"search_params": search, "results": results})
	}
	c.JSON(http.StatusOK, out)
}
