package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// VideoHandler handles the video catalog and the rewarded watch endpoint
type VideoHandler struct {
	videos   service.VideoService
	rewards  service.RewardService
	media    service.MediaService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewVideoHandler creates a new VideoHandler
func NewVideoHandler(videos service.VideoService, rewards service.RewardService, media service.MediaService, validate *validator.Validate, logger zerolog.Logger) *VideoHandler {
	return &VideoHandler{videos: videos, rewards: rewards, media: media, validate: validate, logger: logger}
}

// RegisterRoutes mounts video routes
func (h *VideoHandler) RegisterRoutes(mux *http.ServeMux, authMw, adminMw func(http.Handler) http.Handler) {
	mux.Handle("GET /videos", authMw(http.HandlerFunc(h.listVideos)))
	mux.Handle("GET /videos/{videoId}", authMw(http.HandlerFunc(h.getVideo)))
	mux.Handle("POST /videos/watch", authMw(http.HandlerFunc(h.watch)))
	mux.Handle("GET /videos/progress", authMw(http.HandlerFunc(h.progress)))

	mux.Handle("POST /admin/videos", adminMw(http.HandlerFunc(h.createVideo)))
	mux.Handle("PATCH /admin/videos/{videoId}", adminMw(http.HandlerFunc(h.updateVideo)))
	mux.Handle("DELETE /admin/videos/{videoId}", adminMw(http.HandlerFunc(h.deleteVideo)))
	mux.Handle("POST /admin/videos/{videoId}/upload", adminMw(http.HandlerFunc(h.initiateUpload)))
}

// listVideos godoc
// @Summary List watchable videos
// @Description Returns active videos. Admins can pass include_inactive=true to see the full catalog.
// @Tags videos
// @Produce json
// @Param include_inactive query bool false "Include inactive videos (admin only)"
// @Success 200 {array} dto.VideoResponseDTO
// @Router /videos [get]
func (h *VideoHandler) listVideos(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true" && middleware.IsAdmin(r.Context())
	videos, err := h.videos.ListVideos(r.Context(), includeInactive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]dto.VideoResponseDTO, 0, len(videos))
	for i := range videos {
		resp = append(resp, videoResponse(&videos[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getVideo godoc
// @Summary Get a video
// @Tags videos
// @Produce json
// @Param videoId path string true "Video ID"
// @Success 200 {object} dto.VideoResponseDTO
// @Failure 404 {string} string "Video not found"
// @Router /videos/{videoId} [get]
func (h *VideoHandler) getVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.videos.GetVideo(r.Context(), r.PathValue("videoId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !video.IsActive && !middleware.IsAdmin(r.Context()) {
		http.Error(w, "Video not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, videoResponse(video))
}

// watch godoc
// @Summary Report a completed watch
// @Description Validates the watch against the daily quota and pays the reward. Each video is rewarded at most once per day.
// @Tags videos
// @Accept json
// @Produce json
// @Param watch body dto.WatchDTO true "Watch report"
// @Success 200 {object} dto.WatchResponseDTO
// @Failure 400 {string} string "Video was not watched to completion"
// @Failure 403 {string} string "No active plan"
// @Failure 409 {string} string "Video already watched today"
// @Failure 429 {string} string "Daily quota exhausted"
// @Router /videos/watch [post]
func (h *VideoHandler) watch(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.WatchDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	result, err := h.rewards.Watch(r.Context(), accountID, req.VideoID, req.WatchedSeconds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WatchResponseDTO{
		Reward:        result.Reward,
		WatchedToday:  result.WatchedToday,
		Quota:         result.Quota,
		QuotaComplete: result.QuotaComplete,
		Entry:         entryResponse(result.Entry),
	})
}

// progress godoc
// @Summary Get today's quota progress
// @Tags videos
// @Produce json
// @Success 200 {object} dto.QuotaProgressResponseDTO
// @Router /videos/progress [get]
func (h *VideoHandler) progress(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	progress, err := h.rewards.Progress(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.QuotaProgressResponseDTO{
		WatchedToday: progress.WatchedToday,
		Quota:        progress.Quota,
		CanWatch:     progress.CanWatch,
	})
}

// createVideo godoc
// @Summary Create a video
// @Tags admin
// @Accept json
// @Produce json
// @Param video body dto.VideoCreateDTO true "Video creation request"
// @Success 201 {object} dto.VideoResponseDTO
// @Router /admin/videos [post]
func (h *VideoHandler) createVideo(w http.ResponseWriter, r *http.Request) {
	var req dto.VideoCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	video := &model.Video{
		Title:           req.Title,
		VideoURL:        req.VideoURL,
		DurationSeconds: req.DurationSeconds,
		RewardAmount:    req.RewardAmount,
		IsActive:        req.IsActive,
	}
	created, err := h.videos.CreateVideo(r.Context(), video)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, videoResponse(created))
}

// updateVideo godoc
// @Summary Update a video
// @Tags admin
// @Accept json
// @Produce json
// @Param videoId path string true "Video ID"
// @Param video body dto.VideoUpdateDTO true "Video update request"
// @Success 200 {object} dto.VideoResponseDTO
// @Failure 404 {string} string "Video not found"
// @Router /admin/videos/{videoId} [patch]
func (h *VideoHandler) updateVideo(w http.ResponseWriter, r *http.Request) {
	var req dto.VideoUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	video, err := h.videos.GetVideo(r.Context(), r.PathValue("videoId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Title != nil {
		video.Title = *req.Title
	}
	if req.VideoURL != nil {
		video.VideoURL = *req.VideoURL
	}
	if req.DurationSeconds != nil {
		video.DurationSeconds = *req.DurationSeconds
	}
	if req.RewardAmount != nil {
		video.RewardAmount = *req.RewardAmount
	}
	if req.IsActive != nil {
		video.IsActive = *req.IsActive
	}
	updated, err := h.videos.UpdateVideo(r.Context(), video)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videoResponse(updated))
}

// deleteVideo godoc
// @Summary Delete a video
// @Description Removes the catalog entry and any stored video files.
// @Tags admin
// @Param videoId path string true "Video ID"
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Video not found"
// @Router /admin/videos/{videoId} [delete]
func (h *VideoHandler) deleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoId")
	if err := h.videos.DeleteVideo(r.Context(), videoID); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.media.DeleteVideoAssets(r.Context(), videoID); err != nil {
		h.logger.Error().Err(err).Str("video_id", videoID).Msg("Failed to clean up video assets")
	}
	w.WriteHeader(http.StatusNoContent)
}

// initiateUpload godoc
// @Summary Get a presigned video upload URL
// @Tags admin
// @Accept json
// @Produce json
// @Param videoId path string true "Video ID"
// @Param upload body dto.UploadInitDTO true "Upload request"
// @Success 200 {object} dto.UploadInitResponseDTO
// @Failure 404 {string} string "Video not found"
// @Router /admin/videos/{videoId}/upload [post]
func (h *VideoHandler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoId")
	var req dto.UploadInitDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	video, err := h.videos.GetVideo(r.Context(), videoID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	storagePath, uploadURL, err := h.media.InitiateVideoUpload(r.Context(), video.ID, req.Filename)
	if err != nil {
		http.Error(w, "Failed to generate upload URL: "+err.Error(), http.StatusInternalServerError)
		return
	}
	video.StoragePath = storagePath
	if _, err := h.videos.UpdateVideo(r.Context(), video); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UploadInitResponseDTO{StoragePath: storagePath, UploadURL: uploadURL})
}
