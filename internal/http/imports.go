package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/imports"
	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/importers"
	"github.com/openshelf/openshelf/internal/services"
)

// ImportsController handles bulk import endpoints.
type ImportsController struct {
	service *services.ImportService
	repo    *imports.Repository
	db      *database.Database
}

// NewImportsController creates a new ImportsController.
func NewImportsController(service *services.ImportService, repo *imports.Repository, db *database.Database) *ImportsController {
	return &ImportsController{
		service: service,
		repo:    repo,
		db:      db,
	}
}

// JobSummary is the progress view of an import job.
type JobSummary struct {
	ID             uint              `json:"id"`
	Source         string            `json:"source"`
	IncludeReviews bool              `json:"include_reviews"`
	Privacy        entities.Privacy  `json:"privacy"`
	TaskID         string            `json:"task_id,omitempty"`
	ItemCount      int               `json:"item_count"`
	ResolvedCount  int               `json:"resolved_count"`
	FailedCount    int               `json:"failed_count"`
	PendingCount   int               `json:"pending_count"`
}

func summarize(job *entities.ImportJob) JobSummary {
	summary := JobSummary{
		ID:             job.ID,
		Source:         job.Source,
		IncludeReviews: job.IncludeReviews,
		Privacy:        job.Privacy,
		TaskID:         job.TaskID,
		ItemCount:      len(job.Items),
	}
	for _, item := range job.Items {
		switch {
		case item.Failed():
			summary.FailedCount++
		case item.BookID != nil:
			summary.ResolvedCount++
		default:
			summary.PendingCount++
		}
	}
	return summary
}

// Create handles POST /api/imports
// Accepts a multipart source export and creates+starts an import job.
func (ic *ImportsController) Create(c *gin.Context) {
	userID, err := strconv.ParseUint(c.PostForm("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	user, err := ic.db.GetUserByID(uint(userID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	importer, err := importers.ByName(c.PostForm("source"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	privacy, ok := parsePrivacy(c.PostForm("privacy"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid privacy level"})
		return
	}
	includeReviews := c.PostForm("include_reviews") == "true"

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer file.Close()

	job, err := ic.service.CreateJob(user, importer, file, includeReviews, privacy)
	if err != nil {
		var validationErr *importers.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := ic.service.StartImport(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, summarize(job))
}

// Get handles GET /api/imports/:id
func (ic *ImportsController) Get(c *gin.Context) {
	job, ok := ic.loadJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, summarize(job))
}

// ListItems handles GET /api/imports/:id/items
// With ?failed=true only items with a failure reason are returned, in
// index order — the subset a retry is built from.
func (ic *ImportsController) ListItems(c *gin.Context) {
	job, ok := ic.loadJob(c)
	if !ok {
		return
	}

	items := job.Items
	if c.Query("failed") == "true" {
		var err error
		items, err = ic.repo.FailedItems(job.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// RetryRequest selects the items a retry job is built from. Empty
// means all failed items of the job.
type RetryRequest struct {
	ItemIDs []uint `json:"item_ids"`
}

// Retry handles POST /api/imports/:id/retry
// Creates and starts a new job scoped to the chosen failed items.
func (ic *ImportsController) Retry(c *gin.Context) {
	job, ok := ic.loadJob(c)
	if !ok {
		return
	}

	var req RetryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	failed, err := ic.repo.FailedItems(job.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	subset := failed
	if len(req.ItemIDs) > 0 {
		wanted := make(map[uint]bool, len(req.ItemIDs))
		for _, id := range req.ItemIDs {
			wanted[id] = true
		}
		subset = subset[:0]
		for _, item := range failed {
			if wanted[item.ID] {
				subset = append(subset, item)
			}
		}
	}
	if len(subset) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no failed items to retry"})
		return
	}

	user, err := ic.db.GetUserByID(job.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	retry, err := ic.service.CreateRetryJob(user, job, subset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := ic.service.StartImport(retry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	retryJob, err := ic.repo.GetJob(retry.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, summarize(retryJob))
}

func (ic *ImportsController) loadJob(c *gin.Context) (*entities.ImportJob, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return nil, false
	}

	job, err := ic.repo.GetJob(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "import job not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return job, true
}

func parsePrivacy(raw string) (entities.Privacy, bool) {
	switch entities.Privacy(raw) {
	case entities.PrivacyPublic, entities.PrivacyUnlisted, entities.PrivacyFollowers, entities.PrivacyPrivate:
		return entities.Privacy(raw), true
	case "":
		return entities.PrivacyPublic, true
	default:
		return "", false
	}
}
