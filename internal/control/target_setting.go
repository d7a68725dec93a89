/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"fmt"

	"github.com/friendsincode/auteur/internal/setting"
)

// SettingTarget adapts a *setting.Setting to the Target interface so a
// SettingController can drive it.
type SettingTarget struct {
	Setting *setting.Setting
}

func (t SettingTarget) Kind() setting.Kind     { return t.Setting.Spec.Kind }
func (t SettingTarget) Current() setting.Value { return t.Setting.Current() }
func (t SettingTarget) Apply(v setting.Value) error {
	if !t.Setting.Controllable {
		return fmt.Errorf("control: setting %q is not controllable", t.Setting.Name)
	}
	return t.Setting.SetFromValue(v)
}

// NewSettingController creates a Controller bound to the named setting,
// using the setting's own name as PropName. controlleeID is the owning
// mixer's id.
func NewSettingController(controlleeID string, s *setting.Setting) *Controller {
	return New(controlleeID, s.Name, SettingTarget{Setting: s})
}
