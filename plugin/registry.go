// Package plugin keeps the id → plugin metadata registry the bridge consults
// when tagging diagnostics and resolving per-plugin data directories.
package plugin

import (
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"cqbridge/utils"
)

// 支持的插件 API 版本范围
var apiConstraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(">= 9.0.0, < 10.0.0")
	if err != nil {
		panic(err)
	}
	return c
}()

// Plugin 一个已装载的外部插件的元数据
type Plugin struct {
	ID         int32
	Identifier string
	Name       string
	Filename   string
	AppDir     string
	APIVersion string
}

// DisplayName 日志里使用的插件名，没有名称时退回标识符
func (p *Plugin) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Identifier
}

// Registry 插件注册表
type Registry struct {
	plugins utils.SyncMap[int32, *Plugin]
}

// Register 校验 API 版本后记录插件
func (r *Registry) Register(p *Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin: nil plugin")
	}
	if p.Identifier == "" {
		return fmt.Errorf("plugin: empty identifier (ID: %d)", p.ID)
	}
	v, err := semver.NewVersion(p.APIVersion)
	if err != nil {
		return fmt.Errorf("plugin %q: bad api version %q: %w", p.Identifier, p.APIVersion, err)
	}
	if !apiConstraint.Check(v) {
		return fmt.Errorf("plugin %q: unsupported api version %s", p.Identifier, v)
	}
	if _, loaded := r.plugins.LoadOrStore(p.ID, p); loaded {
		return fmt.Errorf("plugin: duplicate id %d", p.ID)
	}
	return nil
}

func (r *Registry) Load(id int32) (*Plugin, bool) {
	return r.plugins.Load(id)
}

func (r *Registry) Remove(id int32) {
	r.plugins.Delete(id)
}

// Describe 生成诊断信息里的插件身份描述
func (r *Registry) Describe(id int32) string {
	p, ok := r.plugins.Load(id)
	if !ok {
		return fmt.Sprintf("%d (Not Found)", id)
	}
	return fmt.Sprintf("%q (%s) (ID: %d)", p.Identifier, filepath.Base(p.Filename), p.ID)
}

// DataDir 插件的专属数据目录，未注册时为空
func (r *Registry) DataDir(id int32) string {
	p, ok := r.plugins.Load(id)
	if !ok {
		return ""
	}
	return p.AppDir
}
