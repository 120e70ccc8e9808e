package server

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/siteqa/kb"
	"github.com/gin-gonic/gin"
)

type crawlRequest struct {
	URL      string `json:"url" binding:"required"`
	RenderJS bool   `json:"render_js"`
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type indexRequest struct {
	Key string `json:"key"`
}

type sessionResponse struct {
	ID        string     `json:"id"`
	Indexed   bool       `json:"indexed"`
	Source    string     `json:"source,omitempty"`
	Title     string     `json:"title,omitempty"`
	Chunks    int        `json:"chunks"`
	Model     string     `json:"model,omitempty"`
	Dimension int        `json:"dimension,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	History   int        `json:"history"`
}

type crawlResponse struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Mode      string `json:"mode"`
	Chars     int    `json:"chars"`
	Chunks    int    `json:"chunks"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type sourceResponse struct {
	Text   string  `json:"text"`
	Offset int     `json:"offset"`
	Seq    int     `json:"seq"`
	Score  float32 `json:"score"`
}

type askResponse struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Fallback bool             `json:"fallback"`
	Sources  []sourceResponse `json:"sources"`
}

func toSessionResponse(info kb.Info) sessionResponse {
	resp := sessionResponse{
		ID:        info.ID,
		Indexed:   info.Indexed,
		Source:    info.Source,
		Title:     info.Title,
		Chunks:    info.Chunks,
		Model:     info.Model,
		Dimension: info.Dimension,
		History:   info.History,
	}
	if !info.CreatedAt.IsZero() {
		created := info.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func (s *Server) session(c *gin.Context) (*kb.Session, bool) {
	sess, err := s.registry.Get(c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return nil, false
	}
	return sess, true
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
}

func (s *Server) createSession(c *gin.Context) {
	sess, err := s.registry.Create(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(sess.Info(c.Request.Context())))
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess.Info(c.Request.Context())))
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.registry.Remove(c.Request.Context(), c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) crawl(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := sess.Crawl(c.Request.Context(), req.URL, req.RenderJS)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, crawlResponse{
		URL:       res.URL,
		Title:     res.Title,
		Mode:      string(res.Mode),
		Chars:     res.Chars,
		Chunks:    res.Chunks,
		Model:     res.Model,
		Dimension: res.Dimension,
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
}

func (s *Server) ask(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ans, err := sess.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.abort(c, err)
		return
	}

	sources := make([]sourceResponse, 0, len(ans.Sources))
	for _, r := range ans.Sources {
		sources = append(sources, sourceResponse{
			Text:   r.Chunk.Text,
			Offset: r.Chunk.Offset,
			Seq:    r.Chunk.Seq,
			Score:  r.Score,
		})
	}
	c.JSON(http.StatusOK, askResponse{
		Question: ans.Question,
		Answer:   ans.Text,
		Fallback: ans.Fallback,
		Sources:  sources,
	})
}

func (s *Server) clearHistory(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.ClearHistory(c.Request.Context()); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindIndexRequest accepts an empty body, meaning the default key.
func bindIndexRequest(c *gin.Context) (indexRequest, bool) {
	var req indexRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return req, false
	}
	return req, true
}

func (s *Server) saveIndex(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	req, ok := bindIndexRequest(c)
	if !ok {
		return
	}
	if err := sess.SaveIndex(c.Request.Context(), req.Key); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess.Info(c.Request.Context())))
}

func (s *Server) loadIndex(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	req, ok := bindIndexRequest(c)
	if !ok {
		return
	}
	info, err := sess.LoadIndex(c.Request.Context(), req.Key)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(*info))
}
