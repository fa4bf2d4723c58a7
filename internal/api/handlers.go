package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquapredict/aquapredict-go/internal/classifier"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/market"
	"github.com/aquapredict/aquapredict-go/internal/recommend"
)

// Query and body defaults
const (
	DefaultTrendSpecies = "Tuna"
	DefaultEffort       = 5.0
	DefaultMarketOxygen = 6.5
)

// Controller serves the JSON endpoints on top of a recommendation engine
type Controller struct {
	engine    *recommend.Engine
	version   string
	startTime time.Time
	log       logger.Logger
}

// NewController creates a controller for engine
func NewController(engine *recommend.Engine, version string, log logger.Logger) *Controller {
	if log == nil {
		log = GetLogger()
	}
	return &Controller{
		engine:    engine,
		version:   version,
		startTime: time.Now(),
		log:       log,
	}
}

// route describes one endpoint
type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
}

// routes returns every JSON endpoint relative to its mount point
func (c *Controller) routes() []route {
	return []route{
		{http.MethodGet, "/regions", c.GetRegions},
		{http.MethodPost, "/predict", c.Predict},
		{http.MethodPost, "/predict_proba", c.PredictProba},
		{http.MethodGet, "/trends7d", c.GetTrends},
		{http.MethodGet, "/heatmap", c.GetHeatmap},
		{http.MethodGet, "/region/conditions", c.GetConditions},
		{http.MethodPost, "/recommendation", c.Recommend},
		{http.MethodPost, "/advanced_predict", c.AdvancedPredict},
		{http.MethodPost, "/predict_market", c.PredictMarket},
		{http.MethodGet, "/health", c.HealthCheck},
	}
}

// initRoutes registers the endpoints on g
func (c *Controller) initRoutes(g *echo.Group) {
	for _, r := range c.routes() {
		g.Add(r.method, r.path, r.handler)
	}
}

// PredictRequest is the body accepted by the prediction endpoints. Numbers
// are pointers so a missing field can take its default.
type PredictRequest struct {
	Region        string   `json:"region"`
	Month         string   `json:"month"`
	Temperature   *float64 `json:"temperature"`
	Salinity      *float64 `json:"salinity"`
	Oxygen        *float64 `json:"oxygen"`
	FishingEffort *float64 `json:"fishingEffort"`
}

// toRequest applies defaults for missing numbers
func (p *PredictRequest) toRequest(oxygenDefault float64) recommend.Request {
	return recommend.Request{
		Region:        p.Region,
		Month:         p.Month,
		Temperature:   valueOr(p.Temperature, 0),
		Salinity:      valueOr(p.Salinity, 0),
		Oxygen:        valueOr(p.Oxygen, oxygenDefault),
		FishingEffort: valueOr(p.FishingEffort, DefaultEffort),
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// bindRequest decodes the body, writing a 400 response on failure
func (c *Controller) bindRequest(ctx echo.Context, oxygenDefault float64) (recommend.Request, bool, error) {
	var body PredictRequest
	if err := ctx.Bind(&body); err != nil {
		return recommend.Request{}, false, c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	return body.toRequest(oxygenDefault), true, nil
}

// RegionsResponse lists the canonical regions
type RegionsResponse struct {
	Regions []string `json:"regions"`
}

// GetRegions handles GET /regions
func (c *Controller) GetRegions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, RegionsResponse{Regions: c.engine.Regions()})
}

// PredictResponse carries the most probable species
type PredictResponse struct {
	PredictedSpecies string `json:"predicted_species"`
}

// Predict handles POST /predict
func (c *Controller) Predict(ctx echo.Context) error {
	req, ok, err := c.bindRequest(ctx, 0)
	if !ok {
		return err
	}

	species, in, err := c.engine.Predict(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "Prediction failed")
	}

	c.log.Debug("species predicted",
		logger.String("region", in.Region),
		logger.String("source", string(in.Source)),
		logger.String("species", species))
	return ctx.JSON(http.StatusOK, PredictResponse{PredictedSpecies: species})
}

// PredictProba handles POST /predict_proba
func (c *Controller) PredictProba(ctx echo.Context) error {
	req, ok, err := c.bindRequest(ctx, 0)
	if !ok {
		return err
	}

	ranked, err := c.engine.PredictProba(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "Prediction failed")
	}
	if ranked == nil {
		ranked = []classifier.SpeciesProbability{}
	}
	return ctx.JSON(http.StatusOK, ranked)
}

// GetTrends handles GET /trends7d?species=
func (c *Controller) GetTrends(ctx echo.Context) error {
	species := ctx.QueryParam("species")
	if species == "" {
		species = DefaultTrendSpecies
	}
	return ctx.JSON(http.StatusOK, c.engine.Trend(species))
}

// HeatmapResponse lists the grouped fishing locations
type HeatmapResponse struct {
	Locations []market.HeatPoint `json:"locations"`
}

// GetHeatmap handles GET /heatmap
func (c *Controller) GetHeatmap(ctx echo.Context) error {
	points := c.engine.Heatmap()
	if points == nil {
		points = []market.HeatPoint{}
	}
	return ctx.JSON(http.StatusOK, HeatmapResponse{Locations: points})
}

// GetConditions handles GET /region/conditions?lat=&lng=
func (c *Controller) GetConditions(ctx echo.Context) error {
	lat, lng := recommend.DefaultLatitude, recommend.DefaultLongitude
	if err := echo.QueryParamsBinder(ctx).
		Float64("lat", &lat).
		Float64("lng", &lng).
		BindError(); err != nil {
		return c.HandleError(ctx, err, "Invalid coordinates", http.StatusBadRequest)
	}
	return ctx.JSON(http.StatusOK, c.engine.Conditions(lat, lng))
}

// Recommend handles POST /recommendation
func (c *Controller) Recommend(ctx echo.Context) error {
	req, ok, err := c.bindRequest(ctx, 0)
	if !ok {
		return err
	}

	rec, err := c.engine.Recommend(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "Recommendation failed")
	}
	return ctx.JSON(http.StatusOK, rec)
}

// AdvancedPredict handles POST /advanced_predict
func (c *Controller) AdvancedPredict(ctx echo.Context) error {
	req, ok, err := c.bindRequest(ctx, 0)
	if !ok {
		return err
	}

	adv, err := c.engine.AdvancedPredict(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "Advanced prediction failed")
	}
	return ctx.JSON(http.StatusOK, adv)
}

// PredictMarket handles POST /predict_market
func (c *Controller) PredictMarket(ctx echo.Context) error {
	req, ok, err := c.bindRequest(ctx, DefaultMarketOxygen)
	if !ok {
		return err
	}

	forecast, err := c.engine.PredictMarket(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "Market prediction failed")
	}
	return ctx.JSON(http.StatusOK, forecast)
}
