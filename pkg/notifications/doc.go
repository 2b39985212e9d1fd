/*
Package notifications implements the hub's user-facing notification queue.

Notifications are short-lived messages surfaced to UI clients (a device
went offline, an automation failed). They survive hub restarts in an
embedded bbolt database in the data directory and carry a time-to-live; a
scheduled job purges expired entries once a minute and publishes an
expired event for each.

Publishing, deleting and expiring all emit bus events so long-polling
clients refresh without polling the notification endpoint.
*/
package notifications
