package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"name": "tickets",
			"type": "base",
			"system": false,
			"fields": [
				{
					"name": "id",
					"type": "text",
					"system": true,
					"required": true,
					"primaryKey": true,
					"autogeneratePattern": "[a-z0-9]{15}",
					"pattern": "^[a-z0-9]+$",
					"min": 15,
					"max": 15
				},
				{
					"name": "title",
					"type": "text",
					"required": true,
					"max": 200
				},
				{
					"name": "description",
					"type": "text",
					"max": 2000
				},
				{
					"name": "category",
					"type": "text",
					"max": 100
				},
				{
					"name": "venue",
					"type": "text",
					"max": 200
				},
				{
					"name": "event_date",
					"type": "text",
					"max": 50
				},
				{
					"name": "event_time",
					"type": "text",
					"max": 50
				},
				{
					"name": "price",
					"type": "number",
					"min": 0
				},
				{
					"name": "price_per_unit",
					"type": "number",
					"min": 0
				},
				{
					"name": "quantity",
					"type": "number",
					"min": 1,
					"onlyInt": true
				},
				{
					"name": "seller",
					"type": "relation",
					"required": true,
					"collectionId": "_pb_users_auth_",
					"cascadeDelete": false,
					"maxSelect": 1
				},
				{
					"name": "buyer",
					"type": "relation",
					"collectionId": "_pb_users_auth_",
					"cascadeDelete": false,
					"maxSelect": 1
				},
				{
					"name": "attachment",
					"type": "file",
					"maxSelect": 1,
					"maxSize": 5242880,
					"mimeTypes": ["image/jpeg", "image/png", "application/pdf"]
				},
				{
					"name": "status",
					"type": "select",
					"maxSelect": 1,
					"values": ["available", "sold", "expired", "cancelled"]
				},
				{
					"name": "created",
					"type": "autodate",
					"onCreate": true
				},
				{
					"name": "updated",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": true
				}
			],
			"indexes": [
				"CREATE INDEX idx_tickets_seller ON tickets (seller)",
				"CREATE INDEX idx_tickets_buyer ON tickets (buyer)",
				"CREATE INDEX idx_tickets_status ON tickets (status)"
			],
			"listRule": null,
			"viewRule": null,
			"createRule": null,
			"updateRule": null,
			"deleteRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
