package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"moodwave/core/media"
	"moodwave/logger"
	"moodwave/model"

	"github.com/gorilla/mux"
)

const (
	maxTitleLength      = 200
	multipartMaxMemory  = 32 << 20
	createdAtTimeFormat = "2006-01-02T15:04:05.000000Z07:00"
)

type trackResponse struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Mood       model.Mood `json:"mood"`
	Cover      string     `json:"cover"`
	Audio      string     `json:"audio"`
	CreatedAt  string     `json:"created_at"`
	OwnerEmail *string    `json:"owner_email"`
}

func (s *Server) newTrackResponse(r *http.Request, t *model.Track) trackResponse {
	return trackResponse{
		ID:         t.ID,
		Title:      t.Title,
		Mood:       t.Mood,
		Cover:      s.mediaURL(r, t.Cover),
		Audio:      s.mediaURL(r, t.Audio),
		CreatedAt:  t.CreatedAt.UTC().Format(createdAtTimeFormat),
		OwnerEmail: t.OwnerEmail(),
	}
}

// mediaURL turns an object key into an absolute URL for the client.
func (s *Server) mediaURL(r *http.Request, key string) string {
	base := s.cfg.MediaURL
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return strings.TrimSuffix(base, "/") + "/" + key
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: path.Join("/", base, key)}
	return u.String()
}

// ListTracksHandler returns every track, newest first.
func (s *Server) ListTracksHandler(w http.ResponseWriter, r *http.Request) error {
	tracks, err := s.tracks.List(r.Context())
	if err != nil {
		return err
	}

	resp := make([]trackResponse, 0, len(tracks))
	for _, t := range tracks {
		resp = append(resp, s.newTrackResponse(r, t))
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (s *Server) GetTrackHandler(w http.ResponseWriter, r *http.Request) error {
	track, err := s.loadTrack(r)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.newTrackResponse(r, track))
	return nil
}

// CreateTrackHandler accepts a multipart upload. Anonymous uploads are
// stored without an owner and can never be modified afterwards.
func (s *Server) CreateTrackHandler(w http.ResponseWriter, r *http.Request) error {
	defer removeMultipartFiles(r)
	in, err := s.readTrackInput(w, r, false)
	if err != nil {
		return err
	}

	track := &model.Track{Title: *in.Title, Mood: *in.Mood}
	if user := UserFromContext(r.Context()); user != nil {
		ownerID := user.ID
		track.OwnerID = &ownerID
		track.Owner = user
	}

	saved, _, err := s.storeUploads(r.Context(), in, track)
	if err != nil {
		return err
	}
	if err := s.tracks.Create(r.Context(), track); err != nil {
		s.removeMedia(r.Context(), saved...)
		return err
	}

	logger.Info("track created",
		logger.Int64("track_id", track.ID),
		logger.Any("owner_id", track.OwnerID),
		logger.String("audio", track.Audio))
	writeJSON(w, http.StatusCreated, s.newTrackResponse(r, track))
	return nil
}

// UpdateTrackHandler serves PUT (every field required) and PATCH (any subset).
func (s *Server) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) error {
	user, err := requireUser(r)
	if err != nil {
		return err
	}
	track, err := s.loadTrack(r)
	if err != nil {
		return err
	}
	if !track.OwnedBy(user.ID) {
		return errPermissionDenied
	}

	defer removeMultipartFiles(r)
	in, err := s.readTrackInput(w, r, r.Method == http.MethodPatch)
	if err != nil {
		return err
	}
	if in.Title != nil {
		track.Title = *in.Title
	}
	if in.Mood != nil {
		track.Mood = *in.Mood
	}

	saved, replaced, err := s.storeUploads(r.Context(), in, track)
	if err != nil {
		return err
	}
	if err := s.tracks.Update(r.Context(), track); err != nil {
		s.removeMedia(r.Context(), saved...)
		return err
	}
	s.removeMedia(r.Context(), replaced...)

	logger.Info("track updated", logger.Int64("track_id", track.ID), logger.Int64("user_id", user.ID))
	writeJSON(w, http.StatusOK, s.newTrackResponse(r, track))
	return nil
}

func (s *Server) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) error {
	user, err := requireUser(r)
	if err != nil {
		return err
	}
	track, err := s.loadTrack(r)
	if err != nil {
		return err
	}
	if !track.OwnedBy(user.ID) {
		return errPermissionDenied
	}

	if err := s.tracks.Delete(r.Context(), track.ID); err != nil {
		return err
	}
	s.removeMedia(r.Context(), track.Audio, track.Cover)

	logger.Info("track deleted", logger.Int64("track_id", track.ID), logger.Int64("user_id", user.ID))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) loadTrack(r *http.Request) (*model.Track, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return nil, errNotFound
	}
	return s.tracks.FindByID(r.Context(), id)
}

// trackInput is a validated track form. Nil fields were not submitted.
type trackInput struct {
	Title *string
	Mood  *model.Mood
	Cover *multipart.FileHeader
	Audio *multipart.FileHeader
}

// readTrackInput parses and validates a multipart (or urlencoded) track
// form. With partial set, absent fields are left nil instead of reported.
func (s *Server) readTrackInput(w http.ResponseWriter, r *http.Request, partial bool) (*trackInput, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType != "multipart/form-data" && contentType != "application/x-www-form-urlencoded" {
		return nil, detailError(http.StatusUnsupportedMediaType,
			fmt.Sprintf("Unsupported media type %q in request.", contentType))
	}

	if s.cfg.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	}
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, errBodyTooLarge
		}
		return nil, detailError(http.StatusBadRequest, "Multipart form parse error - "+err.Error())
	}

	in := &trackInput{}
	fields := FieldErrors{}

	if values, ok := r.PostForm["title"]; ok {
		title := strings.TrimSpace(values[0])
		switch {
		case title == "":
			fields.Add("title", "This field may not be blank.")
		case utf8.RuneCountInString(title) > maxTitleLength:
			fields.Add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength))
		default:
			in.Title = &title
		}
	} else if !partial {
		fields.Add("title", "This field is required.")
	}

	if values, ok := r.PostForm["mood"]; ok {
		mood := model.Mood(values[0])
		if mood.Valid() {
			in.Mood = &mood
		} else {
			fields.Add("mood", fmt.Sprintf(`"%s" is not a valid choice.`, values[0]))
		}
	} else if !partial {
		fields.Add("mood", "This field is required.")
	}

	in.Audio = formFile(r, "audio", partial, fields)
	if in.Audio != nil {
		if err := media.ValidateAudioFile(in.Audio.Filename); err != nil {
			fields.Add("audio", err.Error())
			in.Audio = nil
		}
	}

	in.Cover = formFile(r, "cover", partial, fields)
	if in.Cover != nil {
		if err := validateCover(in.Cover); err != nil {
			var verr *media.ValidationError
			if !errors.As(err, &verr) {
				return nil, err
			}
			fields.Add("cover", verr.Message)
			in.Cover = nil
		}
	}

	if err := fields.Err(); err != nil {
		return nil, err
	}
	return in, nil
}

// removeMultipartFiles deletes form parts that spilled to disk. The form
// is parsed on this handler's copy of the request, which net/http never
// cleans up itself.
func removeMultipartFiles(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		logger.Warn("failed to remove multipart temp files", logger.ErrorField(err))
	}
}

// formFile returns the uploaded file for field, recording a field error
// when it is missing, empty or sent as plain text.
func formFile(r *http.Request, field string, partial bool, fields FieldErrors) *multipart.FileHeader {
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File[field]; len(files) > 0 {
			if files[0].Size == 0 {
				fields.Add(field, "The submitted file is empty.")
				return nil
			}
			return files[0]
		}
	}

	if values, ok := r.PostForm[field]; ok && values[0] != "" {
		fields.Add(field, "The submitted data was not a file. Check the encoding type on the form.")
	} else if !partial {
		fields.Add(field, "No file was submitted.")
	}
	return nil
}

func validateCover(fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open cover upload: %w", err)
	}
	defer f.Close()
	return media.ValidateImage(f)
}

// storeUploads saves any new files in in and points track at them.
// It returns the keys it saved and the keys they replaced.
func (s *Server) storeUploads(ctx context.Context, in *trackInput, track *model.Track) (saved, replaced []string, err error) {
	uploads := []struct {
		fh     *multipart.FileHeader
		prefix string
		dest   *string
	}{
		{in.Audio, media.AudioPrefix, &track.Audio},
		{in.Cover, media.CoverPrefix, &track.Cover},
	}

	for _, u := range uploads {
		if u.fh == nil {
			continue
		}
		key, err := s.saveUpload(ctx, u.prefix, u.fh)
		if err != nil {
			s.removeMedia(ctx, saved...)
			return nil, nil, err
		}
		saved = append(saved, key)
		if *u.dest != "" {
			replaced = append(replaced, *u.dest)
		}
		*u.dest = key
	}
	return saved, replaced, nil
}

func (s *Server) saveUpload(ctx context.Context, prefix string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	key := media.ObjectName(prefix, fh.Filename)
	contentType := media.ContentType(key)
	if declared := fh.Header.Get("Content-Type"); contentType == "application/octet-stream" && declared != "" {
		contentType = declared
	}

	start := time.Now()
	if err := s.media.Save(ctx, key, f, fh.Size, contentType); err != nil {
		return "", err
	}
	logger.Debug("stored upload",
		logger.String("key", key),
		logger.Int64("size", fh.Size),
		logger.Duration("duration", time.Since(start)))
	return key, nil
}

// removeMedia deletes keys from the media store. Failures are only logged.
func (s *Server) removeMedia(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.media.Delete(ctx, key); err != nil {
			logger.Warn("failed to delete media object", logger.String("key", key), logger.ErrorField(err))
		}
	}
}
