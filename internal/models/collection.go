package models

// Коллекции, синхронизируемые движком
const (
	CollectionEvents  = "events"  // встречи и расходы
	CollectionClients = "clients" // справочник клиентов
)

// Collections lists every synced collection in sync order.
var Collections = []string{CollectionEvents, CollectionClients}

// KnownCollection reports whether name is a synced collection.
func KnownCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// DocumentKey returns the remote document name of a collection.
func DocumentKey(collection string) string {
	return collection + ".json"
}
