package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bravo68web/gitolfs/internal/application/dto"
	"github.com/bravo68web/gitolfs/internal/domain/models"
	domainservice "github.com/bravo68web/gitolfs/internal/domain/service"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// BatchService turns a validated batch request into per-object action
// plans. Authentication, authorization, and header validation happen
// before this layer; the planner only consults the content store and
// builds links.
type BatchService struct {
	content domainservice.ContentService
	log     *logger.Logger
}

// NewBatchService creates a new batch planner
func NewBatchService(content domainservice.ContentService) *BatchService {
	return &BatchService{
		content: content,
		log:     logger.Get().WithFields(logger.Component("batch-service")),
	}
}

// PlanInput carries everything the planner needs for one batch request
type PlanInput struct {
	// BaseURL is scheme://host derived from the incoming request
	BaseURL string

	// Repo is the canonical repository path (always forward slashes)
	Repo string

	// Operation is the client's declared intent
	Operation models.Action

	// AuthHeader and ExpiresAt are echoed into every action link so the
	// client can follow it with the same token
	AuthHeader string
	ExpiresAt  time.Time

	Objects []models.Pointer
}

// Plan builds the response object list for a batch request
func (s *BatchService) Plan(ctx context.Context, in PlanInput) []dto.BatchObject {
	objects := make([]dto.BatchObject, 0, len(in.Objects))
	for _, ptr := range in.Objects {
		objects = append(objects, s.planObject(ctx, in, ptr))
	}
	return objects
}

func (s *BatchService) planObject(ctx context.Context, in PlanInput, ptr models.Pointer) dto.BatchObject {
	obj := dto.BatchObject{OID: ptr.OID, Size: ptr.Size}

	if !ptr.Valid() {
		obj.Error = &dto.ObjectError{
			Code:    http.StatusUnprocessableEntity,
			Message: "Invalid object id",
		}
		return obj
	}

	exists, err := s.content.Exists(ctx, in.Repo, ptr.OID, ptr.Size)
	if err != nil {
		s.log.Error("existence check failed",
			logger.Repository(in.Repo),
			logger.OID(ptr.OID),
			logger.Error(err),
		)
		obj.Error = &dto.ObjectError{
			Code:    http.StatusInternalServerError,
			Message: "Internal error",
		}
		return obj
	}

	switch in.Operation {
	case models.ActionUpload:
		if exists {
			// Already stored with matching size: no actions, client skips
			return obj
		}
		obj.Actions = &dto.ObjectActions{
			Upload: s.link(in, "upload", ptr),
			Verify: s.link(in, "verify", ptr),
		}

	case models.ActionDownload:
		if !exists {
			obj.Error = &dto.ObjectError{
				Code:    http.StatusNotFound,
				Message: "Object does not exist",
			}
			return obj
		}
		obj.Actions = &dto.ObjectActions{
			Download: s.link(in, "download", ptr),
		}
	}

	return obj
}

// link builds an absolute transfer URL with the token auth header
func (s *BatchService) link(in PlanInput, action string, ptr models.Pointer) *dto.Link {
	return &dto.Link{
		Href: fmt.Sprintf("%s/%s/info/lfs/objects/%s?oid=%s&size=%d",
			in.BaseURL, in.Repo, action, ptr.OID, ptr.Size),
		Header:    map[string]string{"Authorization": in.AuthHeader},
		ExpiresAt: in.ExpiresAt,
	}
}
