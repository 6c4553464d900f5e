package sqlitesource

const (
	// EntityTable holds the current state of every entity.
	EntityTable = "entities"

	// LogTable is the append-only change log populated by triggers.
	LogTable = "entity_change_log"
)

// Log operations written by the triggers.
const (
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
)

// entityTableDDL returns the DDL for the entity table. ord orders entities by
// creation; it is only compared between rows that exist at the same time.
func entityTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS entities (
    namespace  TEXT    NOT NULL DEFAULT '',
    name       TEXT    NOT NULL,
    payload    BLOB,
    ord        INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY(namespace, name)
);`
}

// logTableDDL returns the DDL for the change log.
func logTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS entity_change_log (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    op         TEXT    NOT NULL,
    namespace  TEXT    NOT NULL,
    name       TEXT    NOT NULL,
    payload    BLOB,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

// triggerDDL returns the statements that capture entity changes into the log.
func triggerDDL() []string {
	return []string{
		`CREATE TRIGGER IF NOT EXISTS entities_ai AFTER INSERT ON entities
BEGIN
    INSERT INTO entity_change_log(op, namespace, name, payload)
    VALUES ('insert', NEW.namespace, NEW.name, NEW.payload);
END;`,
		`CREATE TRIGGER IF NOT EXISTS entities_au AFTER UPDATE ON entities
BEGIN
    INSERT INTO entity_change_log(op, namespace, name, payload)
    VALUES ('update', NEW.namespace, NEW.name, NEW.payload);
END;`,
		`CREATE TRIGGER IF NOT EXISTS entities_ad AFTER DELETE ON entities
BEGIN
    INSERT INTO entity_change_log(op, namespace, name, payload)
    VALUES ('delete', OLD.namespace, OLD.name, OLD.payload);
END;`,
	}
}

// schemaDDL returns every statement needed to prepare a database.
func schemaDDL() []string {
	return append([]string{entityTableDDL(), logTableDDL()}, triggerDDL()...)
}
