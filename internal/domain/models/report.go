package models

import "time"

// BreedingReport is the weekly herd snapshot stored in MongoDB.
type BreedingReport struct {
	OwnerID             int64     `bson:"owner_id" json:"owner_id"`
	PeriodStart         time.Time `bson:"period_start" json:"period_start"`
	PeriodEnd           time.Time `bson:"period_end" json:"period_end"`
	Inseminations       int       `bson:"inseminations" json:"inseminations"`
	Pregnancies         int       `bson:"pregnancies" json:"pregnancies"`
	Calvings            int       `bson:"calvings" json:"calvings"`
	PregnancyRate       *float64  `bson:"pregnancy_rate,omitempty" json:"pregnancy_rate,omitempty"`
	DifficultBirthRate  *float64  `bson:"difficult_birth_rate,omitempty" json:"difficult_birth_rate,omitempty"`
	CattleNeedingAction []int64   `bson:"cattle_needing_action" json:"cattle_needing_action"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
}
