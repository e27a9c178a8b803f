package model

import "time"

// Folder 文件夹，ParentID 为 nil 表示位于根目录.
type Folder struct {
	ID        string     `gorm:"primaryKey;size:32"                 json:"id"`
	OwnerID   string     `gorm:"size:255;not null;index:idx_folder_owner_parent" json:"owner_id"`
	ParentID  *string    `gorm:"size:32;index:idx_folder_owner_parent;index"     json:"parent_id"`
	Name      string     `gorm:"size:255;not null"                  json:"name"`
	IsDeleted bool       `gorm:"not null;default:false;index"       json:"is_deleted"`
	TrashedAt *time.Time `gorm:"index"                              json:"trashed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (f *Folder) ResourceType() ResourceType { return ResourceFolder }
func (f *Folder) ResourceID() string         { return f.ID }
func (f *Folder) Owner() string              { return f.OwnerID }
func (f *Folder) Parent() *string            { return f.ParentID }
func (f *Folder) Trashed() bool              { return f.IsDeleted }
