// Copyright (c) 2018 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

// create a table for receipts
const receiptTableSchema = `
create table if not exists receipt (
	seq integer primary key autoincrement,
	height integer not null,
	time integer not null,
	action text not null,
	voter blob(20),
	tokenID text,
	attributes text not null,
	messages text not null
);

CREATE INDEX if not exists receiptHeightIndex on receipt(height);
CREATE INDEX if not exists receiptTimeIndex on receipt(time);
CREATE INDEX if not exists receiptVoterIndex on receipt(voter);
CREATE INDEX if not exists receiptTokenIndex on receipt(tokenID);
CREATE INDEX if not exists receiptActionIndex on receipt(action);
`
