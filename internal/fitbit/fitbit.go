// Package fitbit pushes completed meals to the Fitbit food log.
package fitbit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/planner"
	"github.com/larder-app/larder/internal/store"
)

const defaultBaseURL = "https://api.fitbit.com/1/user/-"

// Fitbit meal type ids for food-log entries.
var mealTypeIDs = map[string]int{
	model.MealTypeBreakfast: 1,
	model.MealTypeLunch:     3,
	model.MealTypeDinner:    5,
	model.MealTypeSnack:     7,
}

// TokenSource supplies a valid OAuth2 access token. Refresh handling lives
// behind this interface.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a long-lived personal token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client logs meals against the Fitbit API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	plans   *store.PlanStore
	planner *planner.Planner
	logger  *slog.Logger
}

func NewClient(tokens TokenSource, plans *store.PlanStore, pl *planner.Planner, logger *slog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		plans:   plans,
		planner: pl,
		logger:  logger,
	}
}

// SetBaseURL points the client at a different endpoint, for tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// PushDay logs every completed, not-yet-pushed meal of a date's plan as one
// food-log entry each. Already-pushed meals are skipped so repeated pushes
// stay idempotent.
func (c *Client) PushDay(ctx context.Context, date string) (pushed int, err error) {
	plan, err := c.plans.GetPlanByDate(c.planner.UserID(), date)
	if err != nil {
		return 0, err
	}
	if plan == nil {
		return 0, nil
	}

	for _, meal := range plan.Meals {
		if !meal.IsCompleted || meal.SyncedToFitbit || len(meal.Items) == 0 {
			continue
		}
		if err := c.pushMeal(ctx, plan.Date, meal); err != nil {
			return pushed, fmt.Errorf("push %s meal: %w", meal.MealType, err)
		}
		if err := c.plans.MarkFitbitSynced(meal.ID, time.Now()); err != nil {
			return pushed, err
		}
		pushed++
	}
	return pushed, nil
}

func (c *Client) pushMeal(ctx context.Context, date string, meal model.Meal) error {
	totals, err := c.planner.MealNutrition(meal)
	if err != nil {
		return err
	}
	if totals.Calories <= 0 {
		c.logger.Debug("skipping meal with no calories", "meal", meal.ID)
		return nil
	}

	mealTypeID, ok := mealTypeIDs[meal.MealType]
	if !ok {
		mealTypeID = mealTypeIDs[model.MealTypeSnack]
	}

	form := url.Values{
		"foodName":          {"Larder " + meal.MealType},
		"mealTypeId":        {strconv.Itoa(mealTypeID)},
		"unitId":            {"304"}, // serving
		"amount":            {"1"},
		"date":              {date},
		"calories":          {strconv.Itoa(int(totals.Calories + 0.5))},
		"protein":           {formatGrams(totals.ProteinG)},
		"totalCarbohydrate": {formatGrams(totals.CarbsG)},
		"totalFat":          {formatGrams(totals.FatG)},
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("fitbit token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/foods/log.json", nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = form.Encode()
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fitbit returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

func formatGrams(g float64) string {
	return strconv.FormatFloat(g, 'f', 1, 64)
}
