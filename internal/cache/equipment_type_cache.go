package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/clock"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"go.uber.org/fx"
)

const defaultEquipmentTypeTTL = 10 * time.Minute

var Module = fx.Module("cache",
	fx.Provide(NewEquipmentTypeCache),
)

// EquipmentTypeCache stores catalog lookups made on every submission. The
// catalog changes rarely, so a short TTL is enough to pick up edits.
// Cached details are shared and must not be mutated by callers.
type EquipmentTypeCache interface {
	GetType(id snowflake.ID) (*equipmentdomain.TypeDetail, bool)
	SetType(id snowflake.ID, detail *equipmentdomain.TypeDetail)
	Invalidate()
}

type equipmentTypeCache struct {
	types Cache[snowflake.ID, *equipmentdomain.TypeDetail]
	ttl   time.Duration
}

func NewEquipmentTypeCache(clk clock.Clock) EquipmentTypeCache {
	return &equipmentTypeCache{
		types: NewTTLCache[snowflake.ID, *equipmentdomain.TypeDetail](clk),
		ttl:   defaultEquipmentTypeTTL,
	}
}

func (c *equipmentTypeCache) GetType(id snowflake.ID) (*equipmentdomain.TypeDetail, bool) {
	return c.types.Get(id)
}

func (c *equipmentTypeCache) SetType(id snowflake.ID, detail *equipmentdomain.TypeDetail) {
	if detail == nil || id == 0 {
		return
	}
	c.types.Set(id, detail, c.ttl)
}

func (c *equipmentTypeCache) Invalidate() {
	c.types.Purge()
}
