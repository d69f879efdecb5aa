package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateImageGen(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"transcript.timeout_seconds":    c.Transcript.TimeoutSeconds,
		"speech.timeout_seconds":        c.Speech.TimeoutSeconds,
		"captions.timeout_seconds":      c.Captions.TimeoutSeconds,
		"image_gen.timeout_seconds":     c.ImageGen.TimeoutSeconds,
		"render.timeout_seconds":        c.Render.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"storage.url_expiry_hours":      c.Storage.URLExpiryHours,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Binary == "" {
		return errors.New("render.binary must be set")
	}
	return nil
}

func (c *Config) validateImageGen() error {
	if c.ImageGen.Width <= 0 || c.ImageGen.Height <= 0 {
		return errors.New("image_gen.width and image_gen.height must be positive")
	}
	if c.ImageGen.SceneCount <= 0 {
		return errors.New("image_gen.scene_count must be positive")
	}
	return nil
}

func (c *Config) validatePublish() error {
	switch c.Publish.Privacy {
	case "public", "private", "unlisted":
		return nil
	default:
		return fmt.Errorf("publish.privacy must be public, private, or unlisted (got %q)", c.Publish.Privacy)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
