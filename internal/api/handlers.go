package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/sham/pkg/db/models"
	"github.com/mwantia/sham/pkg/fault"
)

type createTagRequest struct {
	Key           *string `json:"key"`
	Value         *string `json:"value"`
	LinkedAssetID *uint   `json:"linked_asset_id"`
}

type attachTagRequest struct {
	TagID *uint `json:"tag_id"`
}

func (s *Server) listAssets(c *gin.Context) {
	var filter models.AssetFilter
	for _, raw := range c.QueryArray("tag") {
		id, err := parseID(raw)
		if err != nil {
			s.fail(c, err)
			return
		}
		filter.TagIDs = append(filter.TagIDs, id)
	}

	list, err := s.service.List(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": list})
}

// getAsset accepts "<id>" or "<id>.<ext>"; the extension only selects the
// content type.
func (s *Server) getAsset(c *gin.Context) {
	raw := c.Param("id")
	ext := path.Ext(raw)

	id, err := parseID(strings.TrimSuffix(raw, ext))
	if err != nil {
		s.fail(c, err)
		return
	}

	data, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Data(http.StatusOK, contentTypeFor(ext), data)
}

// contentTypeFor returns the bare media type for ext; parameters such as
// charset are dropped since the stored bytes carry no encoding.
func contentTypeFor(ext string) string {
	mediaType, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil || mediaType == "" {
		return "application/octet-stream"
	}
	return mediaType
}

func (s *Server) createAsset(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.fail(c, fmt.Errorf("%w: missing upload field 'file': %v", fault.ErrInvalidArgument, err))
		return
	}

	limit := s.service.MaxPayloadSize()
	if header.Size > limit {
		s.fail(c, fmt.Errorf("%w: %d bytes exceeds the limit of %d bytes", fault.ErrPayloadTooLarge, header.Size, limit))
		return
	}

	file, err := header.Open()
	if err != nil {
		s.fail(c, fault.Wrap(fault.ErrIO, err, "failed to open upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.fail(c, fault.Wrap(fault.ErrIO, err, "failed to read upload"))
		return
	}

	name := header.Filename
	if filename, ok := c.GetPostForm("filename"); ok {
		name = filename
	}

	id, err := s.service.Create(c.Request.Context(), name, data)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) deleteAsset(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	if err := s.service.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

func (s *Server) getAssetTags(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	tagIDs, err := s.service.TagsForAsset(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tagIDs)
}

func (s *Server) attachTag(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var req attachTagRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TagID == nil {
		s.fail(c, fmt.Errorf("%w: body must be {\"tag_id\": <int>}", fault.ErrInvalidArgument))
		return
	}

	if err := s.service.AttachTag(c.Request.Context(), id, *req.TagID); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

func (s *Server) detachTag(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	tagID, err := parseID(c.Param("tag_id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	if err := s.service.DetachTag(c.Request.Context(), id, tagID); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

func (s *Server) createTag(c *gin.Context) {
	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == nil || req.Value == nil {
		s.fail(c, fmt.Errorf("%w: body must contain string 'key' and 'value'", fault.ErrInvalidArgument))
		return
	}

	id, err := s.service.CreateTag(c.Request.Context(), *req.Key, *req.Value, req.LinkedAssetID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) listTags(c *gin.Context) {
	tags, err := s.service.ListTags(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tags)
}

func (s *Server) listAssetTags(c *gin.Context) {
	pairs, err := s.service.ListAssetTags(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, pairs)
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case fault.IsNotFound(err):
		return http.StatusNotFound
	case fault.IsInvalidArgument(err):
		return http.StatusBadRequest
	case fault.IsConstraintViolation(err):
		return http.StatusConflict
	case fault.IsPayloadTooLarge(err):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("%w: '%s' is not an id", fault.ErrInvalidArgument, raw)
	}
	return uint(id), nil
}
