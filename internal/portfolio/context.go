package portfolio

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

var ErrInvalidContext = errors.New("invalid portfolio context")

type Project struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	Technologies string `yaml:"technologies" json:"technologies"`
	Link         string `yaml:"link" json:"link"`
}

type Experience struct {
	Position         string `yaml:"position" json:"position"`
	Company          string `yaml:"company" json:"company"`
	Duration         string `yaml:"duration" json:"duration"`
	Responsibilities string `yaml:"responsibilities" json:"responsibilities"`
}

type Education struct {
	Degree      string `yaml:"degree" json:"degree"`
	Institution string `yaml:"institution" json:"institution"`
	Year        string `yaml:"year" json:"year"`
}

// Context is the static description of the portfolio owner that the
// assistant grounds its answers in. It is loaded once and never mutated.
type Context struct {
	Name        string       `yaml:"name" json:"name"`
	Role        string       `yaml:"role" json:"role"`
	Website     string       `yaml:"website" json:"website"`
	Skills      []string     `yaml:"skills" json:"skills"`
	Projects    []Project    `yaml:"projects" json:"projects"`
	Experience  []Experience `yaml:"experience" json:"experience"`
	Education   []Education  `yaml:"education" json:"education"`
	AIFeatures  string       `yaml:"aiFeatures" json:"aiFeatures"`
	ContactInfo string       `yaml:"contactInfo" json:"contactInfo"`
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
	defaultErr  error
)

// Default returns the built-in context. The embedded document is decoded on
// first use; a malformed document is a build defect and panics.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultCtx, defaultErr = Parse(defaultDocument)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("portfolio: embedded context: %v", defaultErr))
	}
	return defaultCtx
}

// Load reads a context override from a YAML file.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio context: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Context, error) {
	var c Context
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio context: %w", err)
	}
	c.AIFeatures = strings.TrimSpace(c.AIFeatures)
	c.ContactInfo = strings.TrimSpace(c.ContactInfo)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Context) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidContext)
	case strings.TrimSpace(c.Role) == "":
		return fmt.Errorf("%w: role is required", ErrInvalidContext)
	case strings.TrimSpace(c.Website) == "":
		return fmt.Errorf("%w: website is required", ErrInvalidContext)
	}
	for i, p := range c.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: project %d has no name", ErrInvalidContext, i)
		}
	}
	return nil
}

// TopSkills returns at most n skill lines, in order.
func (c *Context) TopSkills(n int) []string {
	if n > len(c.Skills) {
		n = len(c.Skills)
	}
	return c.Skills[:n:n]
}

// ProjectNames returns at most n project names; n < 0 returns all of them.
func (c *Context) ProjectNames(n int) []string {
	if n < 0 || n > len(c.Projects) {
		n = len(c.Projects)
	}
	names := make([]string, 0, n)
	for _, p := range c.Projects[:n] {
		names = append(names, p.Name)
	}
	return names
}
