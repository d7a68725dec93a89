/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"github.com/friendsincode/auteur/internal/setting"
)

// PadProperty is the subset of graph.PadProperty this package depends on.
// Defined locally so package control has no dependency on package graph;
// any PadProperty implementation satisfies it structurally.
type PadProperty interface {
	Get(name string) (setting.Value, error)
	Set(name string, v setting.Value) error
	TypeOf(name string) (setting.Kind, error)
}

// PadTarget adapts a named property on a PadProperty (a mixer pad, in
// practice) to the Target interface so a PropertyController can drive it.
type PadTarget struct {
	Pad  PadProperty
	Prop string
}

// Kind reports the property's Kind, falling back to KindF64 when the pad
// does not know the property.
func (t PadTarget) Kind() setting.Kind {
	k, err := t.Pad.TypeOf(t.Prop)
	if err != nil {
		return setting.KindF64
	}
	return k
}

func (t PadTarget) Current() setting.Value {
	v, err := t.Pad.Get(t.Prop)
	if err != nil {
		return setting.Value{}
	}
	return v
}

func (t PadTarget) Apply(v setting.Value) error {
	return t.Pad.Set(t.Prop, v)
}

// NewPadController creates a Controller bound to one named pad property.
// controlleeID is typically "<slot-id>" and propName the fully namespaced
// "video::alpha" style key used by GetNodeInfo.
func NewPadController(controlleeID, propName string, pad PadProperty, prop string) *Controller {
	return New(controlleeID, propName, PadTarget{Pad: pad, Prop: prop})
}
