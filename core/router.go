package core

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, log zerolog.Logger, auth *AuthService, users UserRepository, hasher *PasswordHasher, db *pgxpool.Pool, redisClient RedisClientRaw) *gin.Engine {
	startedAt := time.Now()
	r := gin.New()

	// Global middleware: tracing wraps everything, the failure boundary
	// wraps every handler below it.
	r.Use(Tracing(log))
	r.Use(FailureBoundary(cfg))
	r.Use(CORS(cfg))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to " + cfg.ProjectName + " API"})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/login", func(c *gin.Context) {
			username := c.PostForm("username")
			password := c.PostForm("password")
			if strings.TrimSpace(username) == "" || password == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
				return
			}
			completeLogin(c, auth, username, password)
		})

		api.POST("/login/json", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if strings.TrimSpace(req.Username) == "" || req.Password == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
				return
			}
			completeLogin(c, auth, req.Username, req.Password)
		})

		authed := api.Group("", RequireAuth(auth))

		authed.GET("/users/me", RequireActive(), func(c *gin.Context) {
			user, _ := CurrentUser(c)
			c.JSON(http.StatusOK, gin.H{
				"id":           user.ID,
				"username":     user.Username,
				"email":        user.Email,
				"full_name":    user.FullName,
				"is_active":    user.IsActive,
				"is_superuser": user.IsSuperuser,
				"created_at":   user.CreatedAt,
			})
		})

		admin := authed.Group("/admin", RequireActive())

		admin.GET("/users", RequireSuperuser(), func(c *gin.Context) {
			page := intQuery(c, "page", 1)
			perPage := intQuery(c, "per_page", 20)
			items, total, err := users.List(c.Request.Context(), page, perPage)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list users")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"users":    items,
				"total":    total,
				"page":     page,
				"per_page": perPage,
			})
		})

		admin.POST("/users", RequireSuperuser(), func(c *gin.Context) {
			var req struct {
				Username    string `json:"username"`
				Email       string `json:"email"`
				Password    string `json:"password"`
				FullName    string `json:"full_name"`
				IsActive    *bool  `json:"is_active"`
				IsSuperuser bool   `json:"is_superuser"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || len(req.Password) < 6 {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username, email, and a password of at least 6 characters are required")
				return
			}

			hash, err := hasher.Hash(req.Password)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to hash password")
				return
			}
			active := true
			if req.IsActive != nil {
				active = *req.IsActive
			}
			id, err := users.Create(c.Request.Context(), NewUser{
				Username:     req.Username,
				Email:        req.Email,
				PasswordHash: hash,
				FullName:     req.FullName,
				IsActive:     active,
				IsSuperuser:  req.IsSuperuser,
			})
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create user")
				return
			}
			zerolog.Ctx(c.Request.Context()).Info().Str("username", req.Username).Int64("id", id).Msg("user created")
			c.JSON(http.StatusCreated, gin.H{"id": id, "username": req.Username})
		})

		admin.GET("/status", RequirePermission("system:status"), func(c *gin.Context) {
			st := CollectSystemStatus(c.Request.Context(), db, redisClient, startedAt)
			c.JSON(http.StatusOK, st)
		})
	}

	return r
}

// completeLogin translates login outcomes into responses. Unknown user and
// wrong password intentionally produce identical bodies.
func completeLogin(c *gin.Context, auth *AuthService, username, password string) {
	res, err := auth.Login(c.Request.Context(), username, password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect username or password")
	case errors.Is(err, ErrInactiveAccount):
		respondError(c, http.StatusBadRequest, "INACTIVE_USER", "Inactive user")
	case err != nil:
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "login failed")
	default:
		c.JSON(http.StatusOK, res)
	}
}

func intQuery(c *gin.Context, name string, defaultVal int) int {
	if v := c.Query(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}
