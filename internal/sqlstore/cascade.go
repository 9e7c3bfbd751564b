package sqlstore

import (
	"context"
	"fmt"
)

// Cascades run as plain statements. Run them inside Cupboard.Update so a
// failure part way leaves nothing half deleted.

const typesOfProject = "SELECT id FROM content_types WHERE project_id = ?"

func deleteTypeContent(ctx context.Context, c *conn, typeID string) error {
	for _, stmt := range []string{
		"DELETE FROM content_items WHERE content_type_id = ?",
		"DELETE FROM content_fields WHERE content_type_id = ?",
	} {
		if _, err := c.exec(ctx, stmt, typeID); err != nil {
			return fmt.Errorf("deleting content type children: %w", err)
		}
	}
	return nil
}

func deleteProjectContent(ctx context.Context, c *conn, projectID string) error {
	for _, stmt := range []string{
		"DELETE FROM content_items WHERE content_type_id IN (" + typesOfProject + ")",
		"DELETE FROM content_fields WHERE content_type_id IN (" + typesOfProject + ")",
		"DELETE FROM content_types WHERE project_id = ?",
		"DELETE FROM posts WHERE project_id = ?",
		"DELETE FROM blogs WHERE project_id = ?",
	} {
		if _, err := c.exec(ctx, stmt, projectID); err != nil {
			return fmt.Errorf("deleting project content: %w", err)
		}
	}
	return nil
}

func deleteOrganizationContent(ctx context.Context, c *conn, orgID string) error {
	rows, err := c.query(ctx, "SELECT id FROM projects WHERE organization_id = ?", orgID)
	if err != nil {
		return fmt.Errorf("listing organization projects: %w", err)
	}
	var projectIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning project id: %w", err)
		}
		projectIDs = append(projectIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating projects: %w", err)
	}

	for _, id := range projectIDs {
		if err := deleteProjectContent(ctx, c, id); err != nil {
			return err
		}
	}
	for _, stmt := range []string{
		"DELETE FROM projects WHERE organization_id = ?",
		"DELETE FROM memberships WHERE organization_id = ?",
	} {
		if _, err := c.exec(ctx, stmt, orgID); err != nil {
			return fmt.Errorf("deleting organization content: %w", err)
		}
	}
	return nil
}
