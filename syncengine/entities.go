package syncengine

import (
	"github.com/mmdatafocus/sync_backend/models"
	"github.com/mmdatafocus/sync_backend/syncentity"
)

// EntityInfo describes one entity as its caller sees it.
type EntityInfo struct {
	Entity      string              `json:"entity"`
	Model       string              `json:"model"`
	Category    syncentity.Category `json:"category"`
	Aliases     []string            `json:"aliases"`
	CanPush     bool                `json:"canPush"`
	ChangeField string              `json:"changeField,omitempty"`
	WriteRoles  []models.Role       `json:"writeRoles"`
}

// Entities lists every entity the caller may pull, in catalog order.
func (e *Engine) Entities(caller Caller) []EntityInfo {
	configs := e.registry.Configs()
	out := make([]EntityInfo, 0, len(configs))
	for _, cfg := range configs {
		if Authorize(cfg.ReadRoles, caller.Role) != nil {
			continue
		}
		aliases := cfg.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		out = append(out, EntityInfo{
			Entity:      cfg.Slug,
			Model:       cfg.ModelName,
			Category:    cfg.Category,
			Aliases:     aliases,
			CanPush:     Authorize(cfg.WriteRoles, caller.Role) == nil,
			ChangeField: cfg.UpdatedField,
			WriteRoles:  cfg.WriteRoles.Slice(),
		})
	}
	return out
}
