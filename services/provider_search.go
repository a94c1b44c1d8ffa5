package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mindhub/config"
	"mindhub/models"
	"mindhub/storage"
)

var (
	ErrSearchTimeout   = errors.New("search timeout")
	ErrDatabaseTimeout = errors.New("database timeout")
)

var searchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "provider_search_duration_seconds",
		Help:    "Duration of provider searches by outcome.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(searchDuration)
}

const (
	defaultSearchLimit = 20
	maxSpecializations = 10
	defaultSpecialty   = "general_psychiatry"
)

// ProviderSearchParams sind die Query-Parameter von GET /providers/search.
type ProviderSearchParams struct {
	Q                    string `form:"q" json:"q" validate:"max=100"`
	State                string `form:"state" json:"state" validate:"omitempty,len=2,uppercase,alpha"`
	City                 string `form:"city" json:"city" validate:"max=100"`
	Zip                  string `form:"zip" json:"zip" validate:"omitempty,len=5,number"`
	Gender               string `form:"gender" json:"gender" validate:"omitempty,oneof=M F"`
	Specializations      string `form:"specializations" json:"specializations" validate:"omitempty,max=500,specializations"`
	AcceptingNewPatients *bool  `form:"acceptingNewPatients" json:"acceptingNewPatients"`
	Telehealth           *bool  `form:"telehealth" json:"telehealth"`
	Limit                *int   `form:"limit" json:"limit" validate:"omitnil,min=1,max=50"`
	Offset               *int   `form:"offset" json:"offset" validate:"omitnil,min=0"`
}

// ParamsError enthält alle ungültigen Parameter einer Anfrage.
type ParamsError struct {
	Fields []ParamError `json:"fields"`
}

type ParamError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ParamsError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid search parameters: " + strings.Join(parts, "; ")
}

// ProviderSearchResult ist die Antwort der Suche.
type ProviderSearchResult struct {
	Providers  []ProviderView `json:"providers"`
	TotalCount int64          `json:"totalCount"`
	LoadTimeMs int64          `json:"loadTimeMs"`
}

// ProviderSearcher ist der Teil des Provider-Stores, den die Suche braucht.
type ProviderSearcher interface {
	SearchProviders(ctx context.Context, f storage.ProviderFilter) ([]models.Provider, int64, error)
}

// ProviderSearch validiert Parameter, fragt den Store mit Zeitlimit ab und formt die Treffer.
type ProviderSearch struct {
	store    ProviderSearcher
	validate *validator.Validate
	cache    *cache.Cache
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProviderSearch(store ProviderSearcher, cfg *config.Config, logger *zap.Logger) *ProviderSearch {
	timeout := cfg.SearchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var memo *cache.Cache
	if cfg.SearchCacheTTL > 0 {
		memo = cache.New(cfg.SearchCacheTTL, 2*cfg.SearchCacheTTL)
	}
	return &ProviderSearch{
		store:    store,
		validate: newParamsValidator(),
		cache:    memo,
		timeout:  timeout,
		logger:   logger,
	}
}

var specializationTerm = regexp.MustCompile(`^[A-Za-z0-9_ -]+$`)

func newParamsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	})
	_ = v.RegisterValidation("specializations", func(fl validator.FieldLevel) bool {
		terms := splitTerms(fl.Field().String())
		if len(terms) == 0 || len(terms) > maxSpecializations {
			return false
		}
		for _, t := range terms {
			if !specializationTerm.MatchString(t) {
				return false
			}
		}
		return true
	})
	return v
}

// Validate prüft alle Parameter und meldet jeden fehlerhaften.
func (s *ProviderSearch) Validate(p ProviderSearchParams) error {
	err := s.validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ParamsError{Fields: []ParamError{{Field: "params", Message: err.Error()}}}
	}
	out := &ParamsError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, ParamError{Field: fe.Field(), Message: paramMessage(fe)})
	}
	return out
}

func paramMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "uppercase", "alpha":
		return "must be a two-letter uppercase code"
	case "number":
		return "must contain only digits"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "specializations":
		return fmt.Sprintf("must be a comma-separated list of up to %d terms of letters, digits, spaces, '-' or '_'", maxSpecializations)
	}
	return "is invalid"
}

// Search führt die Suche aus. Antwortet der Store nicht innerhalb des Zeitlimits,
// kommt ErrSearchTimeout zurück.
func (s *ProviderSearch) Search(ctx context.Context, p ProviderSearchParams) (*ProviderSearchResult, error) {
	start := time.Now()
	if err := s.Validate(p); err != nil {
		searchDuration.WithLabelValues("invalid").Observe(time.Since(start).Seconds())
		return nil, err
	}
	filter := toFilter(p)

	key := cacheKey(filter)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			res := *cached.(*ProviderSearchResult)
			res.LoadTimeMs = time.Since(start).Milliseconds()
			searchDuration.WithLabelValues("cached").Observe(time.Since(start).Seconds())
			return &res, nil
		}
	}

	providers, total, err := s.query(ctx, filter)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrSearchTimeout) || errors.Is(err, ErrDatabaseTimeout) {
			outcome = "timeout"
		}
		searchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		s.logger.Warn("Provider-Suche fehlgeschlagen", zap.Error(err))
		return nil, err
	}

	res := &ProviderSearchResult{
		Providers:  make([]ProviderView, 0, len(providers)),
		TotalCount: total,
	}
	for _, row := range providers {
		res.Providers = append(res.Providers, ShapeProvider(row))
	}
	res.LoadTimeMs = time.Since(start).Milliseconds()
	if s.cache != nil {
		memo := *res
		s.cache.SetDefault(key, &memo)
	}
	searchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return res, nil
}

// query lässt den Store-Aufruf gegen das Zeitlimit laufen.
func (s *ProviderSearch) query(ctx context.Context, f storage.ProviderFilter) ([]models.Provider, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		providers []models.Provider
		total     int64
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		providers, total, err := s.store.SearchProviders(ctx, f)
		done <- outcome{providers, total, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, 0, ErrSearchTimeout
		}
		return nil, 0, ctx.Err()
	case o := <-done:
		if o.err != nil {
			if isTimeout(o.err) {
				return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseTimeout, o.err)
			}
			return nil, 0, fmt.Errorf("search providers: %w", o.err)
		}
		return o.providers, o.total, nil
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}

func toFilter(p ProviderSearchParams) storage.ProviderFilter {
	f := storage.ProviderFilter{
		Query:                strings.TrimSpace(p.Q),
		State:                p.State,
		City:                 strings.TrimSpace(p.City),
		Zip:                  p.Zip,
		Gender:               p.Gender,
		AcceptingNewPatients: p.AcceptingNewPatients,
		Telehealth:           p.Telehealth,
		Limit:                defaultSearchLimit,
	}
	if p.Limit != nil {
		f.Limit = *p.Limit
	}
	if p.Offset != nil {
		f.Offset = *p.Offset
	}
	for _, t := range splitTerms(p.Specializations) {
		f.Specializations = append(f.Specializations, strings.ReplaceAll(strings.ToLower(t), " ", "_"))
	}
	return f
}

func splitTerms(s string) []string {
	var terms []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func cacheKey(f storage.ProviderFilter) string {
	data, _ := json.Marshal(f)
	return string(data)
}

// ProviderView ist die Darstellung eines Providers in der API.
type ProviderView struct {
	ID                   string   `json:"id"`
	Slug                 string   `json:"slug"`
	NPI                  string   `json:"npi,omitempty"`
	FirstName            string   `json:"firstName"`
	LastName             string   `json:"lastName"`
	FullName             string   `json:"fullName"`
	Credentials          string   `json:"credentials,omitempty"`
	Gender               string   `json:"gender,omitempty"`
	City                 string   `json:"city,omitempty"`
	State                string   `json:"state,omitempty"`
	Zip                  string   `json:"zip,omitempty"`
	Phone                string   `json:"phone,omitempty"`
	Specialties          []string `json:"specialties"`
	TaxonomyCode         *string  `json:"taxonomyCode"`
	AcceptingNewPatients bool     `json:"acceptingNewPatients"`
	TelehealthAvailable  bool     `json:"telehealthAvailable"`
}

// ShapeProvider bildet eine Zeile auf die View ab. Fehlende Werte bekommen Defaults,
// damit eine unvollständige Zeile die Serialisierung nie scheitern lässt.
func ShapeProvider(p models.Provider) ProviderView {
	v := ProviderView{
		ID:                   p.ID.String(),
		Slug:                 p.Slug,
		NPI:                  p.NPI,
		FullName:             p.FullName,
		Credentials:          p.Credentials,
		Gender:               p.Gender,
		City:                 p.City,
		State:                p.State,
		Zip:                  p.Zip,
		Phone:                p.Phone,
		TaxonomyCode:         p.TaxonomyCode,
		AcceptingNewPatients: p.AcceptingNewPatients,
		TelehealthAvailable:  p.TelehealthAvailable,
	}
	if p.FirstName != nil {
		v.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		v.LastName = *p.LastName
	}
	if v.FullName == "" {
		v.FullName = strings.TrimSpace(v.FirstName + " " + v.LastName)
	}

	var specialties []string
	if len(p.Specialties) > 0 {
		if err := json.Unmarshal(p.Specialties, &specialties); err != nil {
			specialties = nil
		}
	}
	if len(specialties) == 0 {
		specialties = []string{defaultSpecialty}
	}
	v.Specialties = specialties
	return v
}
