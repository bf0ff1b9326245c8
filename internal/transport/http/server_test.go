package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docvault/internal/bootstrap"
	"docvault/internal/config"
	"docvault/internal/platform/database"
	"docvault/internal/rag/ragtest"
	"docvault/internal/transport/http/response"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	client *ragtest.FakeClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		App:     config.AppConfig{Name: "docvault", Env: "test", GinMode: gin.TestMode},
		Auth:    config.AuthConfig{JWTSecret: "router-test-secret", JWTExpireMinute: 60},
		LLM:     config.LLMConfig{EmbeddingModel: "test-embedding"},
		RAG:     config.RAGConfig{TopK: 5, PageConcurrency: 2},
		Storage: config.StorageConfig{Root: filepath.Join(dir, "files"), MaxUploadMB: 1},
	}

	db, err := database.New(context.Background(), "sqlite", filepath.Join(dir, "router.db"), nil)
	require.NoError(t, err)

	client := ragtest.NewFakeClient()
	app, err := bootstrap.Assemble(cfg, zap.NewNop(), bootstrap.Infra{DB: db, ModelClient: client})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return &testServer{router: NewRouter(app), client: client}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.serve(t, req, token)
}

func (s *testServer) upload(t *testing.T, token, dirID, filename string, content []byte) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("parent_directory_id", dirID))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.serve(t, req, token)
}

func (s *testServer) serve(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":      email,
		"password":   "password123",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

type orgDescription struct {
	OrgID              string `json:"org_id"`
	OrgRootDirectoryID string `json:"org_root_directory_id"`
}

func (s *testServer) organization(t *testing.T, token, name string) orgDescription {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/organizations", token, gin.H{"name": name})
	require.Equal(t, http.StatusOK, status, env.Message)
	var desc orgDescription
	require.NoError(t, json.Unmarshal(env.Data, &desc))
	return desc
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		App     string `json:"app"`
		Dependencies map[string]struct {
			OK      bool   `json:"ok"`
			Enabled bool   `json:"enabled"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "docvault", body.App)
	assert.True(t, body.Dependencies["database"].OK)
	assert.False(t, body.Dependencies["redis"].Enabled)
	assert.True(t, body.Dependencies["rabbitmq"].OK)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ada@Example.com")

	status, env := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, "Ada", me.FirstName)

	status, env = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "ada@example.com", "password": "password123", "first_name": "A", "last_name": "L",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.CodeEmailExists, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, response.CodeInvalidCredentials, env.Code)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ada@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, response.CodeUnauthorized, env.Code)
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner@example.com")
	org := s.organization(t, owner, "Finance")

	status, env := s.do(t, http.MethodPost, "/api/v1/directories", owner, gin.H{
		"parent_directory_id": org.OrgRootDirectoryID,
		"name":                "Reports",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var sub struct {
		DirectoryID string `json:"directory_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sub))

	status, env = s.upload(t, owner, sub.DirectoryID, "plan.txt", []byte("quarterly budget forecast"))
	require.Equal(t, http.StatusOK, status, env.Message)
	var uploaded struct {
		File struct {
			FileID   string `json:"file_id"`
			FileType string `json:"file_type"`
		} `json:"file"`
		Ingested  bool `json:"ingested"`
		PageCount int  `json:"page_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &uploaded))
	assert.True(t, uploaded.Ingested)
	assert.Equal(t, 1, uploaded.PageCount)
	assert.Equal(t, "plain", uploaded.File.FileType)

	status, env = s.do(t, http.MethodGet, "/api/v1/directories/"+sub.DirectoryID, owner, nil)
	require.Equal(t, http.StatusOK, status)
	var listing struct {
		Files []struct {
			Name string `json:"name"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "plan.txt", listing.Files[0].Name)

	status, env = s.do(t, http.MethodPost, "/api/v1/rag/query", owner, gin.H{
		"query":           "quarterly budget forecast",
		"organization_id": org.OrgID,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var results []struct {
		PageID string  `json:"rag_page_id"`
		Score  float64 `json:"similarity_score"`
		Page   int     `json:"page"`
		Name   string  `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "plan.txt", results[0].Name)
	assert.Equal(t, 1, results[0].Page)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	status, env = s.do(t, http.MethodGet, "/api/v1/files/"+uploaded.File.FileID, owner, nil)
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		Ingested bool   `json:"ingested"`
		Pages    []struct {
			PageID   string `json:"rag_page_id"`
		} `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.True(t, detail.Ingested)
	require.Len(t, detail.Pages, 1)
	assert.Equal(t, results[0].PageID, detail.Pages[0].PageID)

	status, _ = s.do(t, http.MethodDelete, "/api/v1/files/"+uploaded.File.FileID, owner, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodPost, "/api/v1/rag/query", owner, gin.H{
		"query":           "budget",
		"organization_id": org.OrgID,
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, response.CodeNoContent, env.Code)
}

func TestQueryAccessControl(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner@example.com")
	outsider := s.register(t, "outsider@example.com")
	org := s.organization(t, owner, "Legal")

	status, env := s.do(t, http.MethodPost, "/api/v1/rag/query", outsider, gin.H{
		"query":           "contract",
		"organization_id": org.OrgID,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, response.CodeForbidden, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/v1/rag/query", owner, gin.H{
		"query":           "contract",
		"organization_id": org.OrgID,
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, response.CodeNoContent, env.Code)

	status, _ = s.do(t, http.MethodPost, "/api/v1/rag/query", owner, gin.H{"organization_id": org.OrgID})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/directories/"+org.OrgRootDirectoryID, outsider, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/organizations/"+org.OrgID+"/members", owner, gin.H{"email": "outsider@example.com"})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/directories/"+org.OrgRootDirectoryID, outsider, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodPost, "/api/v1/organizations/"+org.OrgID+"/members", owner, gin.H{"email": "outsider@example.com"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, response.CodeConflict, env.Code)

	status, env = s.do(t, http.MethodGet, "/api/v1/organizations", outsider, nil)
	require.Equal(t, http.StatusOK, status)
	var orgs []orgDescription
	require.NoError(t, json.Unmarshal(env.Data, &orgs))
	require.Len(t, orgs, 1)
	assert.Equal(t, org.OrgID, orgs[0].OrgID)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner@example.com")
	org := s.organization(t, owner, "Ops")

	status, env := s.upload(t, owner, org.OrgRootDirectoryID, "blob.bin", []byte{0x00, 0x01, 0x02, 0xff})
	require.Equal(t, http.StatusOK, status, env.Message)
	var stored struct {
		Ingested bool `json:"ingested"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.False(t, stored.Ingested)

	s.client.FailEmbed = true
	status, env = s.upload(t, owner, org.OrgRootDirectoryID, "notes.txt", []byte("meeting notes"))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, response.CodeUpstream, env.Code)

	status, env = s.do(t, http.MethodGet, "/api/v1/directories/"+org.OrgRootDirectoryID, owner, nil)
	require.Equal(t, http.StatusOK, status)
	var listing struct {
		Files []struct {
			Name string `json:"name"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "blob.bin", listing.Files[0].Name)

	big := bytes.Repeat([]byte("a"), 2<<20)
	status, env = s.upload(t, owner, org.OrgRootDirectoryID, "big.txt", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, response.CodeTooLarge, env.Code)

	status, _ = s.upload(t, owner, "not-a-uuid", "x.txt", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, status)
}
