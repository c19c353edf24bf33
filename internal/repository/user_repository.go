package repository

import (
	"strconv"

	"github.com/orbitdesk/tracker/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns all users
func (r *GormUserRepository) List() ([]models.User, error) {
	var users []models.User
	if err := r.db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Directory adapts the repository to the lookup shape the task service
// denormalizes from: opaque string ids in, display data out.
type Directory struct {
	repo UserRepository
}

// NewDirectory creates a Directory over a UserRepository.
func NewDirectory(repo UserRepository) *Directory {
	return &Directory{repo: repo}
}

// Lookup resolves a user id to its directory entry.
func (d *Directory) Lookup(id string) (models.DirectoryEntry, bool) {
	numeric, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return models.DirectoryEntry{}, false
	}

	user, err := d.repo.FindByID(numeric)
	if err != nil {
		return models.DirectoryEntry{}, false
	}

	return models.DirectoryEntry{
		ID:       id,
		Name:     user.Name,
		Role:     user.Role,
		PhotoURL: user.PhotoURL,
	}, true
}
