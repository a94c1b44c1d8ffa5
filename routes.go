package main

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mindhub/config"
	"mindhub/content"
	"mindhub/models"
	"mindhub/normalize"
	"mindhub/services"
	"mindhub/storage"
)

type routerDeps struct {
	cfg        *config.Config
	resources  *content.Loader
	treatments *content.Loader
	conditions *content.Loader
	normalizer *normalize.Normalizer
	search     *services.ProviderSearch
	limiter    *ipRateLimiter
	entities   *storage.EntityStore
	runner     *syncRunner
	log        *zap.Logger
}

func newRouter(d routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupHealthRoutes(router, d.entities, d.runner)
	setupResourceRoutes(router, d.resources, d.normalizer, d.cfg, d.log)
	setupTreatmentRoutes(router, d.treatments, d.conditions)
	setupProviderRoutes(router, d.search, d.limiter, d.cfg)
	setupEntityRoutes(router, d.entities, d.log)
	setupAdminRoutes(router, d.runner, d.cfg)
	return router
}

func setupHealthRoutes(router *gin.Engine, store *storage.EntityStore, runner *syncRunner) {
	router.GET("/health", func(c *gin.Context) {
		counts, err := store.CountByType(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "entities": counts, "sync_running": runner.Running()})
	})
}

// setupResourceRoutes liefert normalisierte Ressourcen direkt aus dem Dateisystem.
func setupResourceRoutes(router *gin.Engine, loader *content.Loader, n *normalize.Normalizer, cfg *config.Config, log *zap.Logger) {
	rg := router.Group("/resources")
	// OPTIONS liefert hier Nutzdaten, deshalb läuft die cors-Middleware nur vor GET
	// (sie würde jedes OPTIONS mit Origin als Preflight mit 204 beenden).
	withCORS := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	})

	discovery := func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		catalog := loader.Catalog()
		categories := catalog.Categories()
		c.JSON(http.StatusOK, gin.H{
			"available_categories": categories,
			"category_count":       len(categories),
			"discovered_at":        catalog.DiscoveredAt(),
		})
	}
	rg.OPTIONS("", discovery)
	rg.OPTIONS("/:slug", discovery)

	rg.GET("", withCORS, func(c *gin.Context) {
		category := c.Query("category")
		if category == "" {
			categories := loader.Catalog().Categories()
			c.JSON(http.StatusOK, gin.H{"available_categories": categories, "category_count": len(categories)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"category": category, "slugs": loader.LoadByCategory(category)})
	})

	rg.GET("/:slug", withCORS, func(c *gin.Context) {
		slug := c.Param("slug")
		found, ok := loader.LoadBySlug(slug)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error":                "resource not found",
				"available_categories": loader.Catalog().Categories(),
				"suggestion":           suggestion(loader.Catalog(), slug),
			})
			return
		}

		vr, err := n.Normalize(found.Data, normalize.Source{FileName: found.FileName, Category: found.Category})
		if err != nil {
			log.Warn("Resource failed validation", zap.String("slug", slug), zap.String("path", found.Path), zap.Error(err))
			body := gin.H{
				"error":     "resource failed validation",
				"slug":      slug,
				"timestamp": time.Now().UTC(),
			}
			var verr *normalize.ValidationError
			if !cfg.IsProduction() && errors.As(err, &verr) {
				body["details"] = gin.H{"message": verr.Error(), "category": verr.Category, "fields": verr.Fields}
			}
			c.JSON(http.StatusUnprocessableEntity, body)
			return
		}
		c.JSON(http.StatusOK, vr.Document)
	})
}

// suggestion schlägt einen ähnlichen Slug aus dem Index vor.
func suggestion(catalog *content.Catalog, slug string) string {
	want := strings.ToLower(slug)
	var candidates []string
	for key := range catalog.SlugIndex() {
		if want != "" && (strings.Contains(key, want) || strings.Contains(want, key)) {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return "check the slug or browse one of the available categories"
	}
	sort.Strings(candidates)
	return "did you mean '" + candidates[0] + "'?"
}

func setupTreatmentRoutes(router *gin.Engine, treatments, conditions *content.Loader) {
	router.GET("/treatments/:slug", func(c *gin.Context) {
		slug := c.Param("slug")
		found, ok := treatments.LoadBySlug(slug)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error":                "treatment not found",
				"available_categories": treatments.Catalog().Categories(),
			})
			return
		}
		entityType := services.TreatmentEntityType(found.Category)
		c.JSON(http.StatusOK, services.NewEnvelope(slug, found.Category, entityType, found.Data))
	})

	router.GET("/conditions/:slug", func(c *gin.Context) {
		slug := c.Param("slug")
		found, ok := conditions.LoadBySlug(slug)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error":                "condition not found",
				"available_categories": conditions.Catalog().Categories(),
			})
			return
		}
		c.JSON(http.StatusOK, services.NewEnvelope(slug, found.Category, models.TypeCondition, found.Data))
	})
}

func setupProviderRoutes(router *gin.Engine, search *services.ProviderSearch, limiter *ipRateLimiter, cfg *config.Config) {
	rg := router.Group("/providers")
	rg.GET("/search", rateLimitMiddleware(limiter), func(c *gin.Context) {
		empty := func(status int, msg string, extra gin.H) {
			body := gin.H{"providers": []any{}, "totalCount": 0, "error": msg}
			for k, v := range extra {
				body[k] = v
			}
			c.JSON(status, body)
		}

		var params services.ProviderSearchParams
		if err := c.ShouldBindQuery(&params); err != nil {
			extra := gin.H{}
			if !cfg.IsProduction() {
				extra["details"] = err.Error()
			}
			empty(http.StatusBadRequest, "invalid search parameters", extra)
			return
		}

		res, err := search.Search(c.Request.Context(), params)
		var perr *services.ParamsError
		switch {
		case errors.As(err, &perr):
			empty(http.StatusBadRequest, "invalid search parameters", gin.H{"fields": perr.Fields})
		case errors.Is(err, services.ErrSearchTimeout):
			empty(http.StatusGatewayTimeout, "Search timeout. Please narrow your filters and try again.", nil)
		case errors.Is(err, services.ErrDatabaseTimeout):
			empty(http.StatusGatewayTimeout, "Database timeout. Please try again later.", nil)
		case err != nil:
			extra := gin.H{}
			if !cfg.IsProduction() {
				extra["details"] = err.Error()
			}
			empty(http.StatusInternalServerError, "Search failed", extra)
		default:
			c.JSON(http.StatusOK, res)
		}
	})
}

// setupEntityRoutes liest aus dem Mirror-Store.
func setupEntityRoutes(router *gin.Engine, store *storage.EntityStore, log *zap.Logger) {
	rg := router.Group("/entities")

	rg.GET("", func(c *gin.Context) {
		var q struct {
			Type     string `form:"type"`
			Category string `form:"category"`
			Limit    int    `form:"limit" binding:"omitempty,min=1,max=200"`
			Offset   int    `form:"offset" binding:"omitempty,min=0"`
		}
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
			return
		}
		if q.Type != "" {
			if _, ok := models.ParseEntityType(q.Type); !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type"})
				return
			}
		}
		if q.Limit == 0 {
			q.Limit = 50
		}
		entities, total, err := store.ListEntities(c.Request.Context(), storage.EntityFilter{
			Type: q.Type, Category: q.Category, Limit: q.Limit, Offset: q.Offset,
		})
		if err != nil {
			log.Error("Listing entities failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entities": entities, "total": total})
	})

	rg.GET("/:type/:slug", func(c *gin.Context) {
		entityType, ok := models.ParseEntityType(c.Param("type"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type"})
			return
		}
		entity, err := store.GetEntity(c.Request.Context(), string(entityType), c.Param("slug"))
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
			return
		}
		if err != nil {
			log.Error("Loading entity failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, entity)
	})

	rg.GET("/:type/:slug/relationships", func(c *gin.Context) {
		entityType, ok := models.ParseEntityType(c.Param("type"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type"})
			return
		}
		rels, err := store.ListRelationships(c.Request.Context(), string(entityType), c.Param("slug"))
		if err != nil {
			log.Error("Loading relationships failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if rels == nil {
			rels = []models.Relationship{}
		}
		c.JSON(http.StatusOK, rels)
	})
}

func setupAdminRoutes(router *gin.Engine, runner *syncRunner, cfg *config.Config) {
	rg := router.Group("/admin", apiKeyAuthMiddleware(cfg))

	rg.POST("/sync", func(c *gin.Context) {
		var req struct {
			DryRun bool     `json:"dry_run"`
			Types  []string `json:"types"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}
		err := runner.Start(services.SyncOptions{DryRun: req.DryRun, Types: req.Types})
		if errors.Is(err, errSyncRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Content sync triggered."})
	})

	rg.GET("/sync/last", func(c *gin.Context) {
		report := runner.Last()
		if report == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no sync has run yet"})
			return
		}
		c.JSON(http.StatusOK, report)
	})
}
