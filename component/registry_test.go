package component_test

import (
	"testing"

	"github.com/agrifun/agrifun/assert"
	"github.com/agrifun/agrifun/component"
	"github.com/agrifun/agrifun/types"
)

type FarmPlotComponent struct {
	Fertility float64 `json:"fertility"`
	Tilled    bool    `json:"tilled"`
}

func (FarmPlotComponent) Category() types.Category { return types.CategoryGameplay }

type Inventory struct {
	Capacity int      `json:"capacity"`
	Items    []string `json:"items"`
}

func (Inventory) Category() types.Category { return types.CategoryEconomic }

type Wallet struct {
	Balance int `json:"balance"`
}

func (Wallet) Category() types.Category { return types.CategoryEconomic }

// Same derived name as Wallet after the suffix strip, different shape.
type WalletComponent struct {
	Balance  int    `json:"balance"`
	Currency string `json:"currency"`
}

func (WalletComponent) Category() types.Category { return types.CategoryEconomic }

func TestRegisterDerivesNameFromType(t *testing.T) {
	registry := component.NewRegistry()

	meta, err := component.Register[FarmPlotComponent](registry)
	assert.NilError(t, err)
	assert.Equal(t, "farmplot", meta.Name())
	assert.Equal(t, types.CategoryGameplay, meta.Category())

	meta, err = component.Register[Inventory](registry)
	assert.NilError(t, err)
	assert.Equal(t, "inventory", meta.Name())

	assert.Equal(t, 2, registry.Len())
	assert.DeepEqual(t, []string{"farmplot", "inventory"}, registry.RegisteredComponents())
}

func TestRegisterPointerTypeDerivesSameName(t *testing.T) {
	registry := component.NewRegistry()
	meta, err := component.Register[*FarmPlotComponent](registry)
	assert.NilError(t, err)
	assert.Equal(t, "farmplot", meta.Name())
}

func TestReRegisterSilentlyReplaces(t *testing.T) {
	registry := component.NewRegistry()
	component.MustRegister[Wallet](registry)
	assert.NotNil(t, registry.Get("wallet"))

	// Replacing under the same derived name must not error, even though
	// the schemas differ.
	meta, err := component.Register[WalletComponent](registry)
	assert.NilError(t, err)
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, meta, registry.Get("wallet"))
}

func TestGetReturnsNilForUnknownName(t *testing.T) {
	registry := component.NewRegistry()
	assert.Nil(t, registry.Get("tractor"))
}

func TestValidateDependencies(t *testing.T) {
	registry := component.NewRegistry()
	component.MustRegister[FarmPlotComponent](registry)
	component.MustRegister[Inventory](registry, "wallet")
	component.MustRegister[Wallet](registry)

	assert.Len(t, registry.ValidateDependencies([]string{"inventory", "wallet"}), 0)
	assert.Len(t, registry.ValidateDependencies([]string{"farmplot"}), 0)

	missing := registry.ValidateDependencies([]string{"inventory"})
	assert.DeepEqual(t, []string{`component "inventory" requires "wallet"`}, missing)
}

func TestNewRejectsUnknownFields(t *testing.T) {
	registry := component.NewRegistry()
	meta := component.MustRegister[FarmPlotComponent](registry)

	_, err := meta.New(map[string]any{"fertility": 0.8, "irrigated": true})
	assert.ErrorContains(t, err, "irrigated")
}

func TestNewBuildsZeroValueFromEmptyMapping(t *testing.T) {
	registry := component.NewRegistry()
	meta := component.MustRegister[FarmPlotComponent](registry)

	comp, err := meta.New(nil)
	assert.NilError(t, err)
	plot := comp.(*FarmPlotComponent)
	assert.Equal(t, 0.0, plot.Fertility)
	assert.False(t, plot.Tilled)
}

func TestNewAppliesFields(t *testing.T) {
	registry := component.NewRegistry()
	meta := component.MustRegister[Inventory](registry)

	comp, err := meta.New(map[string]any{"capacity": 8, "items": []string{"seed", "hoe"}})
	assert.NilError(t, err)
	inv := comp.(*Inventory)
	assert.Equal(t, 8, inv.Capacity)
	assert.DeepEqual(t, []string{"seed", "hoe"}, inv.Items)
}

func TestSchemaComparison(t *testing.T) {
	registry := component.NewRegistry()
	wallet := component.MustRegister[Wallet](registry)
	plot := component.MustRegister[FarmPlotComponent](registry)

	same, err := component.IsSchemaValid(wallet.Schema(), wallet.Schema())
	assert.NilError(t, err)
	assert.True(t, same)

	same, err = component.IsSchemaValid(wallet.Schema(), plot.Schema())
	assert.NilError(t, err)
	assert.False(t, same)
}
