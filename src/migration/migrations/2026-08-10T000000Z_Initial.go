package migrations

import (
	"context"
	"time"

	"git.thicket.social/thicket/thicket/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(Initial{})
}

type Initial struct{}

func (m Initial) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
}

func (m Initial) Name() string {
	return "Initial"
}

func (m Initial) Description() string {
	return "Creates the item storage, threading and distribution schema"
}

func (m Initial) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE item_uri (
			id SERIAL NOT NULL PRIMARY KEY,
			uri TEXT NOT NULL,
			guid TEXT
		);
		CREATE UNIQUE INDEX item_uri_uri ON item_uri (uri);

		CREATE TABLE verb (
			id SERIAL NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL
		);
		CREATE UNIQUE INDEX verb_name ON verb (name);

		CREATE TABLE permission_set (
			id SERIAL NOT NULL PRIMARY KEY,
			uid INT NOT NULL,
			allow_cid INT[] NOT NULL DEFAULT '{}',
			allow_gid INT[] NOT NULL DEFAULT '{}',
			deny_cid INT[] NOT NULL DEFAULT '{}',
			deny_gid INT[] NOT NULL DEFAULT '{}'
		);
		CREATE UNIQUE INDEX permission_set_tuple
			ON permission_set (uid, allow_cid, allow_gid, deny_cid, deny_gid);

		CREATE TABLE site_user (
			id SERIAL NOT NULL PRIMARY KEY,
			username VARCHAR(150) NOT NULL,
			nickname VARCHAR(150) NOT NULL DEFAULT '',
			page_flags INT NOT NULL DEFAULT 0,
			retention_days INT NOT NULL DEFAULT 0,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			account_removed BOOLEAN NOT NULL DEFAULT FALSE,
			account_expired BOOLEAN NOT NULL DEFAULT FALSE,
			account_expires_on TIMESTAMP WITH TIME ZONE,
			registered_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			default_group_id INT,
			hidewall BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE UNIQUE INDEX site_user_username ON site_user (username);

		CREATE TABLE contact (
			id SERIAL NOT NULL PRIMARY KEY,
			uid INT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			nurl TEXT NOT NULL DEFAULT '',
			addr TEXT NOT NULL DEFAULT '',
			alias TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			nick TEXT NOT NULL DEFAULT '',
			network VARCHAR(10) NOT NULL DEFAULT '',
			rel INT NOT NULL DEFAULT 0,
			self BOOLEAN NOT NULL DEFAULT FALSE,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			pending BOOLEAN NOT NULL DEFAULT FALSE,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			forum BOOLEAN NOT NULL DEFAULT FALSE,
			prv BOOLEAN NOT NULL DEFAULT FALSE,
			notify_new_posts BOOLEAN NOT NULL DEFAULT FALSE,
			avatar TEXT NOT NULL DEFAULT '',
			avatar_date TIMESTAMP WITH TIME ZONE,
			archived_at TIMESTAMP WITH TIME ZONE,
			last_updated TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX contact_uid_nurl ON contact (uid, nurl);
		CREATE INDEX contact_nurl_rel ON contact (nurl, rel);

		CREATE TABLE item (
			id SERIAL NOT NULL PRIMARY KEY,
			guid TEXT NOT NULL DEFAULT '',
			uid INT NOT NULL DEFAULT 0,
			uri_id INT NOT NULL REFERENCES item_uri (id),
			parent INT NOT NULL DEFAULT 0,
			parent_uri_id INT NOT NULL REFERENCES item_uri (id),
			thr_parent_uri_id INT NOT NULL REFERENCES item_uri (id),
			gravity INT NOT NULL DEFAULT 0,
			vid INT NOT NULL REFERENCES verb (id),
			network VARCHAR(10) NOT NULL DEFAULT '',
			post_type INT NOT NULL DEFAULT 0,
			author_id INT NOT NULL REFERENCES contact (id),
			owner_id INT NOT NULL REFERENCES contact (id),
			contact_id INT NOT NULL REFERENCES contact (id),
			causer_id INT REFERENCES contact (id),
			psid INT REFERENCES permission_set (id),
			private INT NOT NULL DEFAULT 0,
			wall BOOLEAN NOT NULL DEFAULT FALSE,
			origin BOOLEAN NOT NULL DEFAULT FALSE,
			pushed BOOLEAN NOT NULL DEFAULT FALSE,
			global BOOLEAN NOT NULL DEFAULT FALSE,
			visible BOOLEAN NOT NULL DEFAULT TRUE,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			moderated BOOLEAN NOT NULL DEFAULT FALSE,
			starred BOOLEAN NOT NULL DEFAULT FALSE,
			mention BOOLEAN NOT NULL DEFAULT FALSE,
			forum_mode INT NOT NULL DEFAULT 0,
			created TIMESTAMP WITH TIME ZONE NOT NULL,
			edited TIMESTAMP WITH TIME ZONE NOT NULL,
			received TIMESTAMP WITH TIME ZONE NOT NULL,
			commented TIMESTAMP WITH TIME ZONE NOT NULL,
			changed TIMESTAMP WITH TIME ZONE NOT NULL,
			extid TEXT NOT NULL DEFAULT ''
		);
		CREATE UNIQUE INDEX item_uri_uid ON item (uri_id, uid);
		CREATE INDEX item_guid_uid ON item (guid, uid);
		CREATE INDEX item_parent ON item (parent);
		CREATE INDEX item_uid_received ON item (uid, received DESC);

		CREATE TABLE thread (
			iid INT NOT NULL PRIMARY KEY REFERENCES item (id),
			uid INT NOT NULL DEFAULT 0,
			author_id INT NOT NULL,
			owner_id INT NOT NULL,
			contact_id INT NOT NULL,
			network VARCHAR(10) NOT NULL DEFAULT '',
			private INT NOT NULL DEFAULT 0,
			wall BOOLEAN NOT NULL DEFAULT FALSE,
			origin BOOLEAN NOT NULL DEFAULT FALSE,
			pushed BOOLEAN NOT NULL DEFAULT FALSE,
			visible BOOLEAN NOT NULL DEFAULT TRUE,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			moderated BOOLEAN NOT NULL DEFAULT FALSE,
			starred BOOLEAN NOT NULL DEFAULT FALSE,
			ignored BOOLEAN NOT NULL DEFAULT FALSE,
			mention BOOLEAN NOT NULL DEFAULT FALSE,
			created TIMESTAMP WITH TIME ZONE NOT NULL,
			edited TIMESTAMP WITH TIME ZONE NOT NULL,
			received TIMESTAMP WITH TIME ZONE NOT NULL,
			commented TIMESTAMP WITH TIME ZONE NOT NULL,
			changed TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX thread_uid_commented ON thread (uid, commented DESC);

		CREATE TABLE item_content (
			uri_id INT NOT NULL PRIMARY KEY REFERENCES item_uri (id),
			title TEXT NOT NULL DEFAULT '',
			raw_body TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			rendered_html TEXT NOT NULL DEFAULT '',
			rendered_hash VARCHAR(40) NOT NULL DEFAULT '',
			language VARCHAR(10) NOT NULL DEFAULT '',
			plink TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE tag (
			id SERIAL NOT NULL PRIMARY KEY,
			name VARCHAR(250) NOT NULL,
			url TEXT
		);
		CREATE UNIQUE INDEX tag_name_url ON tag (name, url) NULLS NOT DISTINCT;

		CREATE TABLE item_tag (
			uri_id INT NOT NULL REFERENCES item_uri (id),
			tag_id INT NOT NULL REFERENCES tag (id),
			type INT NOT NULL DEFAULT 0
		);
		CREATE UNIQUE INDEX item_tag_assoc ON item_tag (uri_id, tag_id, type);

		CREATE TABLE tag_subscription (
			uid INT NOT NULL REFERENCES site_user (id),
			tag_id INT NOT NULL REFERENCES tag (id),
			PRIMARY KEY (uid, tag_id)
		);

		CREATE TABLE user_item (
			uri_id INT NOT NULL REFERENCES item_uri (id),
			uid INT NOT NULL,
			hidden BOOLEAN NOT NULL DEFAULT FALSE,
			ignored BOOLEAN NOT NULL DEFAULT FALSE,
			pinned BOOLEAN NOT NULL DEFAULT FALSE,
			notification_type INT NOT NULL DEFAULT 0,
			PRIMARY KEY (uri_id, uid)
		);

		CREATE TABLE server_block (
			id SERIAL NOT NULL PRIMARY KEY,
			domain TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT ''
		);
		CREATE UNIQUE INDEX server_block_domain ON server_block (domain);

		CREATE TABLE worker_job (
			id SERIAL NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			priority INT NOT NULL DEFAULT 3,
			item_id INT NOT NULL,
			created TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			done BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX worker_job_pending ON worker_job (done, priority, created);
	`)
	return err
}

func (m Initial) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE worker_job;
		DROP TABLE server_block;
		DROP TABLE user_item;
		DROP TABLE tag_subscription;
		DROP TABLE item_tag;
		DROP TABLE tag;
		DROP TABLE item_content;
		DROP TABLE thread;
		DROP TABLE item;
		DROP TABLE contact;
		DROP TABLE site_user;
		DROP TABLE permission_set;
		DROP TABLE verb;
		DROP TABLE item_uri;
	`)
	return err
}
