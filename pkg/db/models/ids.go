package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a missing primary key so rows created through sqlite (which
// has no gen_random_uuid) get the same identifiers as postgres.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error                   { assignID(&u.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error                { assignID(&p.ID); return nil }
func (e *LedgerEntry) BeforeCreate(*gorm.DB) error            { assignID(&e.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error                   { assignID(&c.ID); return nil }
func (c *CartItem) BeforeCreate(*gorm.DB) error               { assignID(&c.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error                  { assignID(&o.ID); return nil }
func (o *OrderItem) BeforeCreate(*gorm.DB) error              { assignID(&o.ID); return nil }
func (m *SmsMessage) BeforeCreate(*gorm.DB) error             { assignID(&m.ID); return nil }
func (s *ShopOrder) BeforeCreate(*gorm.DB) error              { assignID(&s.ID); return nil }
func (c *Complaint) BeforeCreate(*gorm.DB) error              { assignID(&c.ID); return nil }
func (s *AgentStorefront) BeforeCreate(*gorm.DB) error        { assignID(&s.ID); return nil }
func (p *AgentStorefrontProduct) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }
func (o *AgentStoreOrder) BeforeCreate(*gorm.DB) error        { assignID(&o.ID); return nil }
func (p *AgentProfit) BeforeCreate(*gorm.DB) error            { assignID(&p.ID); return nil }
func (t *DeferredTask) BeforeCreate(*gorm.DB) error           { assignID(&t.ID); return nil }
func (t *TopUp) BeforeCreate(*gorm.DB) error                  { assignID(&t.ID); return nil }

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&LedgerEntry{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&SmsMessage{},
		&ShopOrder{},
		&Complaint{},
		&AgentStorefront{},
		&AgentStorefrontProduct{},
		&AgentStoreOrder{},
		&AgentProfit{},
		&DeferredTask{},
		&TopUp{},
	}
}
