package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/config"
	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	"github.com/finance-tracker/ledger/internal/infra/dependency"
	"github.com/finance-tracker/ledger/internal/integration/persistence"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
	"github.com/finance-tracker/ledger/test/integration/mock"
)

const testJWTSecret = "test-jwt-secret-key-for-testing-purposes"

var tags string

func init() {
	flag.StringVar(&tags, "scenarios", "", "tags to run")
}

func TestFeatures(t *testing.T) {
	flag.Parse()

	suite := godog.TestSuite{
		ScenarioInitializer: func(s *godog.ScenarioContext) {
			InitializeScenario(s)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../features"},
			Tags:     tags,
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

type testContext struct {
	uri         string
	headers     map[string]string
	client      *http.Client
	response    *response
	db          *mock.Db
	redis       *mock.Redis
	dir         string
	injector    *dependency.Injector
	server      *httptest.Server
	cancel      context.CancelFunc
	accessToken string
	accountID   string
}

type response struct {
	status int
	body   any
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	test := &testContext{
		client: &http.Client{Timeout: 10 * time.Second},
	}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		test.before()
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		test.after()
		return ctx, nil
	})

	// Background steps
	ctx.Given(`^the API server is running$`, test.theAPIServerIsRunning)

	// Session and ledger setup steps
	ctx.Given(`^I am signed in as "([^"]*)"$`, test.iAmSignedInAs)
	ctx.Given(`^carry-forward is enabled$`, test.carryForwardIsEnabled)
	ctx.Given(`^the current account has (income|expense) of "([^"]*)" (\d+) months? ago$`, test.theCurrentAccountHasEntryMonthsAgo)

	// Header steps
	ctx.Given(`^the header is empty$`, test.theHeaderIsEmpty)
	ctx.Given(`^the header contains the key "([^"]*)" with "([^"]*)"$`, test.theHeaderContainsTheKeyWith)

	// Request steps
	ctx.When(`^I send a "([^"]*)" request to "([^"]*)"$`, test.iSendARequestTo)
	ctx.When(`^I send a "([^"]*)" request to "([^"]*)" with body:$`, test.iSendARequestToWithBody)

	// Response assertion steps
	ctx.Then(`^the response status should be (\d+)$`, test.theResponseStatusShouldBe)
	ctx.Then(`^the response should be JSON$`, test.theResponseShouldBeJSON)
	ctx.Then(`^the response should contain "([^"]*)"$`, test.theResponseShouldContain)
	ctx.Then(`^the response field "([^"]*)" should be "([^"]*)"$`, test.theResponseFieldShouldBe)
	ctx.Then(`^the response field "([^"]*)" should exist$`, test.theResponseFieldShouldExist)
	ctx.Then(`^the response field "([^"]*)" should have (\d+) items$`, test.theResponseFieldShouldHaveItems)

	// Database assertion steps
	ctx.Then(`^the db should contain (\d+) objects in the "([^"]*)" table$`, test.theDbShouldContainObjectsInTheTable)
	ctx.Then(`^the db should contain (\d+) objects in "([^"]*)" with the values$`, test.theDbShouldContainObjectsInWithTheValues)

	// Remote assertion steps
	ctx.Then(`^the remote should contain (\d+) "([^"]*)" records$`, test.theRemoteShouldContainRecords)
}

func (t *testContext) before() {
	t.headers = make(map[string]string)
	t.response = nil
	t.accessToken = ""
	t.accountID = ""
}

func (t *testContext) after() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.server != nil {
		t.server.Close()
		t.server = nil
	}
	if t.injector != nil {
		_ = t.injector.Close(context.Background())
		t.injector = nil
	}
	if t.redis != nil {
		t.redis.Close()
		t.redis = nil
	}
	if t.dir != "" {
		_ = os.RemoveAll(t.dir)
		t.dir = ""
	}
}

// startServer builds a fresh ledger in a temporary directory for every
// scenario, replicating to an in-memory redis.
func (t *testContext) startServer() error {
	gin.SetMode(gin.TestMode)

	dir, err := os.MkdirTemp("", "ledger-features-*")
	if err != nil {
		return err
	}
	t.dir = dir
	t.redis = mock.NewRedis()

	cfg := config.Load()
	cfg.Server.Environment = "test"
	cfg.Store.Path = filepath.Join(dir, "ledger.db")
	cfg.Preferences.Path = filepath.Join(dir, "preferences.db")
	cfg.Remote.Backend = config.RemoteBackendRedis
	cfg.Remote.KeyPrefix = "ledger"
	cfg.Redis.URL = t.redis.URL()
	cfg.Redis.Password = ""
	cfg.JWT.Secret = testJWTSecret
	cfg.Sync.WorkerEnabled = false
	cfg.Sync.RateLimit = 1000
	cfg.CarryForward.WorkerEnabled = false
	cfg.CarryForward.DefaultEnabled = false

	injector, err := dependency.NewInjector(cfg)
	if err != nil {
		return err
	}
	t.injector = injector

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	if err := injector.Start(ctx); err != nil {
		return err
	}

	t.db = mock.NewDb(injector.Store, map[string]any{
		"users":          &model.UserModel{},
		"accounts":       &model.AccountModel{},
		"categories":     &model.CategoryModel{},
		"contacts":       &model.ContactModel{},
		"ledger_entries": &model.LedgerEntryModel{},
	})

	t.server = httptest.NewServer(injector.Router.Setup("test"))
	t.uri = t.server.URL
	return nil
}

func (t *testContext) theAPIServerIsRunning() error {
	if err := t.startServer(); err != nil {
		return err
	}

	resp, err := t.client.Get(t.uri + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func (t *testContext) iAmSignedInAs(identifier string) error {
	payload := fmt.Sprintf(`{"apple_user_identifier": %q}`, identifier)
	if err := t.executeRequest(http.MethodPost, "/api/v1/session/sign-in", []byte(payload)); err != nil {
		return err
	}
	if t.response.status != http.StatusOK && t.response.status != http.StatusCreated {
		return fmt.Errorf("sign-in failed with %d: %v", t.response.status, t.response.body)
	}
	token, ok := getFieldValue(t.response.body, "token").(string)
	if !ok || token == "" {
		return fmt.Errorf("sign-in returned no token: %v", t.response.body)
	}
	t.accessToken = token
	return nil
}

func (t *testContext) carryForwardIsEnabled() error {
	if err := t.executeRequest(http.MethodPut, "/api/v1/carry-forward", []byte(`{"enabled": true}`)); err != nil {
		return err
	}
	if t.response.status != http.StatusOK {
		return fmt.Errorf("enabling carry-forward failed with %d: %v", t.response.status, t.response.body)
	}
	return nil
}

func (t *testContext) theCurrentAccountHasEntryMonthsAgo(kind, amount string, monthsAgo int) error {
	ctx := context.Background()
	current, err := t.injector.Initializer.EnsureInitialized(ctx)
	if err != nil {
		return err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return err
	}

	date := entity.PeriodOf(time.Now().UTC()).AddMonths(-monthsAgo).Start().AddDate(0, 0, 4)
	entry := entity.NewLedgerEntry(current.ID, value, kind == "expense", date, "", nil, nil)

	return persistence.NewUnitOfWork(t.injector.Store).Do(ctx, func(repos adapter.Repositories) error {
		return repos.Entries.Create(ctx, entry)
	})
}

func (t *testContext) theHeaderIsEmpty() error {
	t.headers = make(map[string]string)
	return nil
}

func (t *testContext) theHeaderContainsTheKeyWith(key, value string) error {
	t.headers[key] = t.replacePlaceholders(value)
	return nil
}

func (t *testContext) iSendARequestTo(method, path string) error {
	return t.executeRequest(method, t.replacePlaceholders(path), nil)
}

func (t *testContext) iSendARequestToWithBody(method, path string, body *godog.DocString) error {
	var payload []byte
	if body != nil && body.Content != "" {
		payload = []byte(t.replacePlaceholders(body.Content))
	}
	return t.executeRequest(method, t.replacePlaceholders(path), payload)
}

func (t *testContext) replacePlaceholders(content string) string {
	current := entity.PeriodOf(time.Now().UTC())

	content = strings.ReplaceAll(content, "{{access_token}}", t.accessToken)
	content = strings.ReplaceAll(content, "{{account_id}}", t.accountID)
	content = strings.ReplaceAll(content, "{{random_id}}", uuid.NewString())
	content = strings.ReplaceAll(content, "{{year}}", strconv.Itoa(current.Year))
	content = strings.ReplaceAll(content, "{{month}}", strconv.Itoa(int(current.Month)))
	content = strings.ReplaceAll(content, "{{current_period}}", current.String())
	return content
}

func (t *testContext) executeRequest(method, path string, payload []byte) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, t.uri+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
	}

	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	t.response = &response{
		status: resp.StatusCode,
	}

	var responseBody map[string]any
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		t.response.body = string(bodyBytes)
		return nil
	}
	t.response.body = responseBody

	// Capture the account ID from account responses
	if _, isAccount := responseBody["is_default"]; isAccount {
		if id, ok := responseBody["id"].(string); ok {
			t.accountID = id
		}
	}
	if account, ok := responseBody["account"].(map[string]any); ok {
		if id, ok := account["id"].(string); ok {
			t.accountID = id
		}
	}

	return nil
}

func (t *testContext) theResponseStatusShouldBe(expectedStatus int) error {
	if t.response == nil {
		return errors.New("no response received")
	}
	if t.response.status != expectedStatus {
		return fmt.Errorf("expected status %d, got %d (body: %v)", expectedStatus, t.response.status, t.response.body)
	}
	return nil
}

func (t *testContext) theResponseShouldBeJSON() error {
	if t.response == nil {
		return errors.New("no response received")
	}
	if _, ok := t.response.body.(map[string]any); !ok {
		return fmt.Errorf("response is not JSON: %v", t.response.body)
	}
	return nil
}

func (t *testContext) theResponseShouldContain(field string) error {
	if t.response == nil {
		return errors.New("no response received")
	}

	body, ok := t.response.body.(map[string]any)
	if !ok {
		return fmt.Errorf("response is not a JSON object: %v", t.response.body)
	}

	if _, exists := body[field]; !exists {
		return fmt.Errorf("response does not contain field '%s': %v", field, body)
	}
	return nil
}

func (t *testContext) theResponseFieldShouldBe(field, expectedValue string) error {
	if t.response == nil {
		return errors.New("no response received")
	}

	value := getFieldValue(t.response.body, field)
	if value == nil {
		return fmt.Errorf("field '%s' not found in response: %v", field, t.response.body)
	}

	actualValue := fmt.Sprintf("%v", value)
	if actualValue != t.replacePlaceholders(expectedValue) {
		return fmt.Errorf("field '%s' expected '%s', got '%s'", field, expectedValue, actualValue)
	}
	return nil
}

func (t *testContext) theResponseFieldShouldExist(field string) error {
	if t.response == nil {
		return errors.New("no response received")
	}

	if getFieldValue(t.response.body, field) == nil {
		return fmt.Errorf("field '%s' not found in response: %v", field, t.response.body)
	}
	return nil
}

func (t *testContext) theResponseFieldShouldHaveItems(field string, quantity int) error {
	if t.response == nil {
		return errors.New("no response received")
	}

	items, ok := getFieldValue(t.response.body, field).([]any)
	if !ok {
		return fmt.Errorf("field '%s' is not a list: %v", field, t.response.body)
	}
	if len(items) != quantity {
		return fmt.Errorf("field '%s' expected %d items, got %d", field, quantity, len(items))
	}
	return nil
}

func (t *testContext) theDbShouldContainObjectsInTheTable(quantity int, table string) error {
	count, err := t.db.Count(table, nil)
	if err != nil {
		return err
	}
	if count != quantity {
		return fmt.Errorf("expected %d objects in '%s', got %d", quantity, table, count)
	}
	return nil
}

func (t *testContext) theDbShouldContainObjectsInWithTheValues(quantity int, table string, content *godog.DocString) error {
	var criteria map[string]any
	if err := json.Unmarshal([]byte(t.replacePlaceholders(content.Content)), &criteria); err != nil {
		return err
	}

	count, err := t.db.Count(table, criteria)
	if err != nil {
		return err
	}
	if count != quantity {
		return fmt.Errorf("expected %d objects in '%s' with criteria %v, got %d", quantity, table, criteria, count)
	}
	return nil
}

func (t *testContext) theRemoteShouldContainRecords(quantity int, kind string) error {
	records, err := t.redis.Client.HLen(context.Background(), "ledger:"+kind).Result()
	if err != nil {
		return err
	}
	if int(records) != quantity {
		return fmt.Errorf("expected %d remote %s records, got %d", quantity, kind, records)
	}
	return nil
}

func getFieldValue(object any, dotSeparatedField string) any {
	if object == nil {
		return nil
	}

	var objectMap map[string]any
	switch v := object.(type) {
	case map[string]any:
		objectMap = v
	default:
		objectJSON, _ := json.Marshal(object)
		if err := json.Unmarshal(objectJSON, &objectMap); err != nil {
			return nil
		}
	}

	fields := strings.Split(dotSeparatedField, ".")
	var field any = objectMap

	for _, currentField := range fields {
		if field == nil {
			return nil
		}

		if i, err := strconv.Atoi(currentField); err == nil {
			if arr, ok := field.([]any); ok && i < len(arr) {
				field = arr[i]
			} else {
				return nil
			}
			continue
		}

		fieldMap, ok := field.(map[string]any)
		if !ok {
			return nil
		}
		field = fieldMap[currentField]
	}

	return field
}
