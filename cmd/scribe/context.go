package main

import (
	"fmt"
	"strings"
	"sync"

	"scribe/internal/config"
)

// commandContext lazily resolves configuration and the API client shared by
// all subcommands.
type commandContext struct {
	addressFlag *string
	configFlag  *string

	once sync.Once
	cfg  *config.Config
	err  error
}

func newCommandContext(addressFlag, configFlag *string) *commandContext {
	return &commandContext{
		addressFlag: addressFlag,
		configFlag:  configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = *c.configFlag
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.err = fmt.Errorf("load config: %w", err)
			return
		}
		c.cfg = cfg
	})
	return c.cfg, c.err
}

func (c *commandContext) client() (*apiClient, error) {
	if c.addressFlag != nil && strings.TrimSpace(*c.addressFlag) != "" {
		return newAPIClient(strings.TrimSpace(*c.addressFlag)), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return newAPIClient(cfg.Paths.APIBind), nil
}
