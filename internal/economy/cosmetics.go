package economy

import (
	"idle_tapper/internal/domain"
)

func (e *Economy) BuySuit(s *domain.SaveState, id string) (int64, error) {
	suit, ok := e.Catalog.Suit(id)
	if !ok {
		return 0, ErrUnknownItem
	}
	if domain.HasString(s.OwnedSuits, id) {
		return 0, ErrAlreadyOwned
	}
	if s.Balance < suit.Price {
		return 0, ErrInsufficientFunds
	}
	s.Balance -= suit.Price
	s.OwnedSuits = domain.AddString(s.OwnedSuits, id)
	return suit.Price, nil
}

// EquipSuit equips an owned suit; an empty id unequips.
func (e *Economy) EquipSuit(s *domain.SaveState, id string) error {
	if id == "" {
		s.EquippedSuit = ""
		return nil
	}
	if _, ok := e.Catalog.Suit(id); !ok {
		return ErrUnknownItem
	}
	if !domain.HasString(s.OwnedSuits, id) {
		return ErrNotOwned
	}
	s.EquippedSuit = id
	return nil
}

func (e *Economy) BuyPet(s *domain.SaveState, id string) (int64, error) {
	pet, ok := e.Catalog.Pet(id)
	if !ok {
		return 0, ErrUnknownItem
	}
	if domain.HasString(s.OwnedPets, id) {
		return 0, ErrAlreadyOwned
	}
	if s.Balance < pet.Price {
		return 0, ErrInsufficientFunds
	}
	s.Balance -= pet.Price
	s.OwnedPets = domain.AddString(s.OwnedPets, id)
	return pet.Price, nil
}

// EquipPet equips an owned pet; an empty id unequips.
func (e *Economy) EquipPet(s *domain.SaveState, id string) error {
	if id == "" {
		s.EquippedPet = ""
		return nil
	}
	if _, ok := e.Catalog.Pet(id); !ok {
		return ErrUnknownItem
	}
	if !domain.HasString(s.OwnedPets, id) {
		return ErrNotOwned
	}
	s.EquippedPet = id
	return nil
}
