// Package client is a small typed client for the Apollo API used by tooling and tests.
package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"apollo/backend/models"
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
)

// Session carries the caller's token. It is passed to every call, so one
// Client can serve several users at once.
type Session struct {
	Token string
}

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json")
	r.JSONMarshal = json.Marshal
	r.JSONUnmarshal = json.Unmarshal
	return &Client{http: r}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apollo: %d %s", e.Status, e.Message)
}

type errorBody struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func (c *Client) request(ctx context.Context, s Session) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if s.Token != "" {
		req.SetAuthToken(s.Token)
	}
	return req
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
	if body, ok := resp.Error().(*errorBody); ok && body.Message != "" {
		apiErr.Message = body.Message
		apiErr.Details = body.Details
	}
	return apiErr
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, *models.User, error) {
	var out services.AuthResult
	resp, err := c.request(ctx, Session{}).
		SetBody(services.LoginInput{Email: email, Password: password}).
		SetResult(&out).
		Post("/api/auth/login")
	if err := check(resp, err); err != nil {
		return Session{}, nil, err
	}
	return Session{Token: out.Token}, out.User, nil
}

type sectionsBody struct {
	Sections []models.Section `json:"sections"`
}

func (c *Client) Sections(ctx context.Context, s Session, courseID uint) ([]models.Section, error) {
	var out sectionsBody
	resp, err := c.request(ctx, s).
		SetResult(&out).
		SetPathParam("courseId", strconv.FormatUint(uint64(courseID), 10)).
		Get("/api/courses/{courseId}/sections")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Sections, nil
}

func (c *Client) ReorderSections(ctx context.Context, s Session, courseID uint, order []uint) ([]models.Section, error) {
	var out sectionsBody
	resp, err := c.request(ctx, s).
		SetBody(services.ReorderInput{Order: order}).
		SetResult(&out).
		SetPathParam("courseId", strconv.FormatUint(uint64(courseID), 10)).
		Put("/api/courses/{courseId}/sections/reorder")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Sections, nil
}

func (c *Client) StartAttempt(ctx context.Context, s Session, quizID uint) (*models.QuizAttempt, error) {
	var out struct {
		Attempt *models.QuizAttempt `json:"attempt"`
	}
	resp, err := c.request(ctx, s).
		SetResult(&out).
		SetPathParam("id", strconv.FormatUint(uint64(quizID), 10)).
		Post("/api/quizzes/{id}/attempt")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Attempt, nil
}

func (c *Client) SubmitAttempt(ctx context.Context, s Session, attemptID uint, responses []services.Response) (*services.SubmitResult, error) {
	var out services.SubmitResult
	resp, err := c.request(ctx, s).
		SetBody(services.SubmitInput{Responses: responses}).
		SetResult(&out).
		SetPathParam("attemptId", strconv.FormatUint(uint64(attemptID), 10)).
		Post("/api/quizzes/attempts/{attemptId}/submit")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Attempts(ctx context.Context, s Session, quizID uint) ([]models.QuizAttempt, error) {
	var out struct {
		Attempts []models.QuizAttempt `json:"attempts"`
	}
	resp, err := c.request(ctx, s).
		SetResult(&out).
		SetPathParam("id", strconv.FormatUint(uint64(quizID), 10)).
		Get("/api/quizzes/{id}/attempts")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Attempts, nil
}

// Move returns a copy of ids with the element at index shifted by delta.
// ok is false when index or the target falls outside the list.
func Move(ids []uint, index, delta int) (out []uint, ok bool) {
	target := index + delta
	if index < 0 || index >= len(ids) || target < 0 || target >= len(ids) {
		return nil, false
	}
	out = append([]uint(nil), ids...)
	moved := out[index]
	if delta > 0 {
		copy(out[index:target], out[index+1:target+1])
	} else {
		copy(out[target+1:index+1], out[target:index])
	}
	out[target] = moved
	return out, true
}

// MoveSection moves sections[index] by delta. The new order is computed locally
// and pushed to the server. If the push fails the local order is discarded and
// the server's current order is returned together with the error.
func (c *Client) MoveSection(ctx context.Context, s Session, courseID uint, sections []models.Section, index, delta int) ([]models.Section, error) {
	ids := make([]uint, len(sections))
	for i, sec := range sections {
		ids[i] = sec.ID
	}
	order, ok := Move(ids, index, delta)
	if !ok {
		return sections, utils.NewValidationError("cannot move section %d by %d", index, delta)
	}

	updated, err := c.ReorderSections(ctx, s, courseID, order)
	if err == nil {
		return updated, nil
	}
	current, fetchErr := c.Sections(ctx, s, courseID)
	if fetchErr != nil {
		return nil, fmt.Errorf("%w (refetch failed: %v)", err, fetchErr)
	}
	return current, err
}
