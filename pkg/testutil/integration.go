package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
)

// IntegrationTestSuite provides base functionality for end-to-end tests
// that run connectors against files in a temporary directory
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 2*time.Minute)
	s.startTime = time.Now()

	tempDir, err := os.MkdirTemp("", "nebula-chart-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir

	s.T().Logf("Integration test suite started in %s", s.tempDir)
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()

	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}

	s.T().Logf("Integration test suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// Path returns name joined to the temporary directory
func (s *IntegrationTestSuite) Path(name string) string {
	return filepath.Join(s.tempDir, name)
}

// CreateTempFile creates a temporary file with content
func (s *IntegrationTestSuite) CreateTempFile(name string, content []byte) string {
	path := s.Path(name)
	require.NoError(s.T(), os.WriteFile(path, content, 0o600))
	return path
}

// WriteConfig saves cfg as a YAML connector configuration file
func (s *IntegrationTestSuite) WriteConfig(name string, cfg *config.BaseConfig) string {
	data, err := yaml.Marshal(cfg)
	require.NoError(s.T(), err)
	return s.CreateTempFile(name, data)
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// CSVFixture is an in-memory CSV table used to build test inputs
type CSVFixture struct {
	Header []string
	Rows   [][]string
}

// SalesFixture returns a month, units, region table with n rows. Units
// count up from 1 and regions alternate between "north" and "south".
func SalesFixture(n int) CSVFixture {
	months := []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	f := CSVFixture{Header: []string{"month", "units", "region"}}
	for i := 0; i < n; i++ {
		region := "north"
		if i%2 == 1 {
			region = "south"
		}
		f.Rows = append(f.Rows, []string{months[i%len(months)], fmt.Sprintf("%d", i+1), region})
	}
	return f
}

// String renders the fixture as comma separated text with a header line
func (f CSVFixture) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(f.Header, ","))
	b.WriteByte('\n')
	for _, row := range f.Rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteCSV writes the fixture to dir/name and returns the path
func WriteCSV(t *testing.T, dir, name string, f CSVFixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(f.String()), 0o600))
	return path
}
