package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/protection"
	"github.com/dmitrijs2005/pdtools/internal/server/services"
	"github.com/gin-gonic/gin"
)

func validation(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, msg)
}

// readUpload loads a multipart file field into memory.
func readUpload(c *gin.Context, field string) (services.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.Upload{}, tooLarge
		}
		return services.Upload{}, validation("No file provided")
	}

	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.Upload{}, err
	}

	return services.Upload{UserID: userID(c), FileName: fh.Filename, Data: data}, nil
}

func (s *Server) protect(c *gin.Context) {
	up, err := readUpload(c, "file")
	if err != nil {
		s.fail(c, err)
		return
	}

	password := c.PostForm("password")
	if password == "" {
		s.fail(c, validation("Password is required"))
		return
	}
	if len([]rune(password)) < protection.MinPasswordLength {
		s.fail(c, validation(fmt.Sprintf("Password must be at least %d characters long", protection.MinPasswordLength)))
		return
	}

	perms, err := protection.ParsePermissions(c.PostForm("permissions"))
	if err != nil {
		s.fail(c, err)
		return
	}

	out, err := s.tools.Protect(c.Request.Context(), up, password, perms)
	if err != nil {
		s.fail(c, err, "file", up.FileName, "size", len(up.Data))
		return
	}

	s.sendPDF(c, out)
}

func (s *Server) unlock(c *gin.Context) {
	up, err := readUpload(c, "file")
	if err != nil {
		s.fail(c, err)
		return
	}

	password := c.PostForm("password")
	if password == "" {
		s.fail(c, validation("Password is required"))
		return
	}

	out, err := s.tools.Unlock(c.Request.Context(), up, password)
	if err != nil {
		s.fail(c, err, "file", up.FileName, "size", len(up.Data))
		return
	}

	s.sendPDF(c, out)
}

func (s *Server) compare(c *gin.Context) {
	file1, err1 := readUpload(c, "file1")
	file2, err2 := readUpload(c, "file2")
	for _, err := range []error{err1, err2} {
		if err == nil {
			continue
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, err)
			return
		}
	}
	if err1 != nil || err2 != nil {
		s.fail(c, validation("Both files are required"))
		return
	}

	res, err := s.tools.Compare(c.Request.Context(), userID(c), file1, file2)
	if err != nil {
		s.fail(c, err,
			"file", file1.FileName+", "+file2.FileName,
			"size", len(file1.Data)+len(file2.Data))
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) listHistory(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(c, validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	items, err := s.tools.History(c.Request.Context(), userID(c), limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) downloadHistory(c *gin.Context) {
	url, err := s.tools.DownloadURL(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// usage reports service-wide run counts per tool and day to any
// authenticated caller.
func (s *Server) usage(c *gin.Context) {
	days := 7
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 366 {
			s.fail(c, validation("days must be between 1 and 366"))
			return
		}
		days = n
	}

	items, err := s.tools.Usage(c.Request.Context(), userID(c), days)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) sendPDF(c *gin.Context, out *services.Output) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(out.FileName)))
	c.Header(HistoryIDHeader, out.HistoryID)
	c.Data(http.StatusOK, "application/pdf", out.Data)
}

// sanitizeFilename drops characters that would break the quoted
// Content-Disposition value.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
}
