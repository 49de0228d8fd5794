package ledger

import "monthlyaid/internal/core"

// VillageSeed is the fixed initial dataset. Seeding is guarded by an
// emptiness check on the collection, so running it twice never duplicates.
func VillageSeed() []core.Village {
	return []core.Village{
		{Name: "Rampur", Mandal: "Tirupati Urban", District: "Tirupati", Status: core.VillageActive},
		{Name: "Srikalahasti", Mandal: "Srikalahasti", District: "Tirupati", Status: core.VillageActive},
		{Name: "Puttur", Mandal: "Puttur", District: "Tirupati", Status: core.VillageQueued},
		{Name: "Nagari", Mandal: "Nagari", District: "Tirupati", Status: core.VillageCompleted},
		{Name: "Satyavedu", Mandal: "Satyavedu", District: "Tirupati", Status: core.VillageInactive},
	}
}
