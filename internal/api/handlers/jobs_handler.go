package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/careerportal/internal/repositories/static"
	"github.com/yoockh/careerportal/internal/utils"
)

type JobsHandler struct {
	repo static.JobRepository
}

func NewJobsHandler(repo static.JobRepository) *JobsHandler {
	return &JobsHandler{repo: repo}
}

func (h *JobsHandler) List(c *gin.Context) {
	jobs, err := h.repo.List(c.Request.Context())
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "JobsHandler.List", "failed to list jobs", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": jobs})
}

func (h *JobsHandler) Get(c *gin.Context) {
	job, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			writeError(c, utils.E(utils.CodeNotFound, "JobsHandler.Get", "job not found", err))
			return
		}
		writeError(c, utils.E(utils.CodeInternal, "JobsHandler.Get", "failed to load job", err))
		return
	}
	c.JSON(http.StatusOK, job)
}
