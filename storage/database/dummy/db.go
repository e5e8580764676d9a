package dummydb

import (
	"sync"

	"github.com/bestqrov/lahwla/core/student"
)

type (
	DB struct {
		student *studentTables
	}

	studentTables struct {
		sync.RWMutex
		students     map[string]*student.Student
		inscriptions []student.Inscription
		payments     []student.Payment
	}
)

func Open() (*DB, error) {
	db := &DB{
		student: &studentTables{students: make(map[string]*student.Student)},
	}
	return db, nil
}
