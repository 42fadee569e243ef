// Package queries holds the read side of the order service.
//
// Handlers read with raw SQL over *gorm.DB and return immutable view structs
// rather than aggregates. GetOrderQueryHandler and ListOrdersQueryHandler go
// through the TTL cache (keys orders:{id} and orders:all); the command side
// invalidates those keys after every committed write. GetOrderStatusQueryHandler
// always hits the database.
package queries
