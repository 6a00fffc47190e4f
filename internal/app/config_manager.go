package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/oshiro-app/oshiro-server/internal/domain"
	"github.com/oshiro-app/oshiro-server/pkg/common"
)

const configCacheTTL = 30 * time.Second

type cachedValue struct {
	value    string
	loadedAt time.Time
}

// ConfigManager reads runtime settings from the sys_config table with a
// short-lived in-memory cache.
type ConfigManager struct {
	app   *Application
	mu    sync.RWMutex
	cache map[string]cachedValue
}

func NewConfigManager(a *Application) *ConfigManager {
	return &ConfigManager{app: a, cache: make(map[string]cachedValue)}
}

func (cm *ConfigManager) cacheKey(category, name string) string {
	return fmt.Sprintf("%s.%s", category, name)
}

// GetString returns the configured value, empty string when missing.
func (cm *ConfigManager) GetString(category, name string) string {
	key := cm.cacheKey(category, name)

	cm.mu.RLock()
	cv, hit := cm.cache[key]
	cm.mu.RUnlock()
	if hit && time.Since(cv.loadedAt) < configCacheTTL {
		return cv.value
	}

	var cfg domain.SysConfig
	if err := cm.app.DB().Where("type = ? and name = ?", category, name).First(&cfg).Error; err != nil {
		return ""
	}

	cm.mu.Lock()
	cm.cache[key] = cachedValue{value: cfg.Value, loadedAt: time.Now()}
	cm.mu.Unlock()
	return cfg.Value
}

func (cm *ConfigManager) GetInt(category, name string) int {
	return cast.ToInt(cm.GetString(category, name))
}

func (cm *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(cm.GetString(category, name))
}

func (cm *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(cm.GetString(category, name))
}

// Set upserts a setting and refreshes the cache entry.
func (cm *ConfigManager) Set(category, name, value string) error {
	var cfg domain.SysConfig
	err := cm.app.DB().Where("type = ? and name = ?", category, name).First(&cfg).Error
	if err != nil {
		cfg = domain.SysConfig{
			ID:    common.UUIDint64(),
			Type:  category,
			Name:  name,
			Value: value,
		}
		if err := cm.app.DB().Create(&cfg).Error; err != nil {
			zap.L().Error("failed to create setting", zap.String("key", cm.cacheKey(category, name)), zap.Error(err))
			return err
		}
	} else {
		if err := cm.app.DB().Model(&domain.SysConfig{}).
			Where("id = ?", cfg.ID).Update("value", value).Error; err != nil {
			return err
		}
	}

	cm.mu.Lock()
	cm.cache[cm.cacheKey(category, name)] = cachedValue{value: value, loadedAt: time.Now()}
	cm.mu.Unlock()
	return nil
}
